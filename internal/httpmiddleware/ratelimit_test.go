package httpmiddleware

import "testing"

func TestTokenBucketExhaustion(t *testing.T) {
	l := NewTokenBucket(3, 60)
	for i := 0; i < 3; i++ {
		if !l.Allow("1.2.3.4") {
			t.Fatalf("request %d unexpectedly limited", i)
		}
	}
	if l.Allow("1.2.3.4") {
		t.Error("expected limit after capacity exhausted")
	}
}

func TestTokenBucketKeysAreIndependent(t *testing.T) {
	l := NewTokenBucket(1, 60)
	if !l.Allow("a") {
		t.Fatal("first request for a limited")
	}
	if !l.Allow("b") {
		t.Error("request for b limited by a's bucket")
	}
}

func TestTokenBucketDefaultsCapacity(t *testing.T) {
	l := NewTokenBucket(0, 5)
	if l.capacity != 5 {
		t.Errorf("capacity = %d, want 5", l.capacity)
	}
}
