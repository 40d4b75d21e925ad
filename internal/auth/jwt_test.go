package auth

import (
	"encoding/json"
	"testing"
	"time"
)

const testKey = "test-signing-key"

func TestIssueParseRoundTrip(t *testing.T) {
	token, exp, err := Issue("CSE101", RoleStaff, "campus-portal", testKey, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !exp.After(time.Now()) {
		t.Error("expiry not in the future")
	}

	claims, err := Parse(token, testKey, "campus-portal")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.RollNo != "CSE101" {
		t.Errorf("rollNo = %q", claims.RollNo)
	}
	if claims.Role() != RoleStaff {
		t.Errorf("role = %q", claims.Role())
	}
}

func TestParseRejectsWrongKey(t *testing.T) {
	token, _, err := Issue("CSE101", RoleStudent, "campus-portal", testKey, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := Parse(token, "wrong-key", "campus-portal"); err == nil {
		t.Error("expected signature verification failure")
	}
}

func TestParseRejectsIssuerMismatch(t *testing.T) {
	token, _, err := Issue("CSE101", RoleStudent, "someone-else", testKey, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := Parse(token, testKey, "campus-portal"); err == nil {
		t.Error("expected issuer mismatch error")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	token, _, err := Issue("CSE101", RoleStudent, "campus-portal", testKey, -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := Parse(token, testKey, "campus-portal"); err == nil {
		t.Error("expected expiry error")
	}
}

func TestRoleValueDecodesStringAndArray(t *testing.T) {
	cases := []struct {
		raw  string
		want Role
	}{
		{`{"rollNo":"1","roles":"staff"}`, RoleStaff},
		{`{"rollNo":"1","roles":["hod"]}`, RoleHOD},
		{`{"rollNo":"1","roles":["student","staff"]}`, RoleStudent},
		{`{"rollNo":"1","roles":[]}`, RoleUnknown},
		{`{"rollNo":"1","roles":"registrar"}`, RoleUnknown},
	}
	for _, tc := range cases {
		var claims Claims
		if err := json.Unmarshal([]byte(tc.raw), &claims); err != nil {
			t.Fatalf("decode %s: %v", tc.raw, err)
		}
		if claims.Role() != tc.want {
			t.Errorf("%s: role = %q, want %q", tc.raw, claims.Role(), tc.want)
		}
	}
}

func TestParseRole(t *testing.T) {
	if ParseRole("Staff") != RoleUnknown {
		t.Error("role matching is case-sensitive by contract")
	}
	if ParseRole("hod") != RoleHOD {
		t.Error("hod not recognized")
	}
}
