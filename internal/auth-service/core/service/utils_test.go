package service

import (
	"strings"
	"testing"
)

func TestValidatePhone(t *testing.T) {
	tests := []struct {
		phone string
		ok    bool
	}{
		{"+23765000000", true},
		{"+12345678", true},
		{"+12345678901234", true},
		{"", false},
		{"23765000000", false},
		{"+1234567", false},
		{"+123456789012345", false},
		{"+2376500000a", false},
		{"+237 650 000", false},
	}
	for _, tt := range tests {
		err := validatePhone(tt.phone)
		if tt.ok && err != nil {
			t.Errorf("validatePhone(%q) = %v, want nil", tt.phone, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("validatePhone(%q) = nil, want error", tt.phone)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if err := validatePassword("secret"); err != nil {
		t.Errorf("valid password rejected: %v", err)
	}
	if err := validatePassword(""); err == nil {
		t.Error("empty password accepted")
	}
	if err := validatePassword("abc"); err == nil {
		t.Error("too-short password accepted")
	}
	if err := validatePassword(strings.Repeat("x", MaxPasswordLen+1)); err == nil {
		t.Error("too-long password accepted")
	}
}

func TestValidateEmail(t *testing.T) {
	if err := validateEmail("a@b.cm"); err != nil {
		t.Errorf("valid email rejected: %v", err)
	}
	if err := validateEmail("no-at-sign"); err == nil {
		t.Error("email without @ accepted")
	}
	if err := validateEmail("a@@b.cm"); err == nil {
		t.Error("email with two @ accepted")
	}
	if err := validateEmail("a@b"); err == nil {
		t.Error("too-short email accepted")
	}
}

func TestValidateRegistration(t *testing.T) {
	if err := validateRegistration("Jean", "+23765000000", "", "secret"); err != nil {
		t.Errorf("registration without email rejected: %v", err)
	}
	if err := validateRegistration("Jean", "+23765000000", "jean@mail.cm", "secret"); err != nil {
		t.Errorf("full registration rejected: %v", err)
	}
	if err := validateRegistration("", "+23765000000", "", "secret"); err == nil {
		t.Error("empty name accepted")
	}
	if err := validateRegistration("Jean", "bad", "", "secret"); err == nil {
		t.Error("bad phone accepted")
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := hashPassword("secret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !checkPassword(hash, "secret") {
		t.Error("correct password rejected")
	}
	if checkPassword(hash, "wrong") {
		t.Error("wrong password accepted")
	}
}

func TestNewReferralCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		code, err := newReferralCode()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(code) != ReferralCodeLen {
			t.Fatalf("code %q has length %d, want %d", code, len(code), ReferralCodeLen)
		}
		for _, c := range code {
			if !strings.ContainsRune(codeAlphabet, c) {
				t.Fatalf("code %q contains %q outside the alphabet", code, c)
			}
		}
		seen[code] = true
	}
	// 20 draws from a 32^8 space colliding would mean a broken generator
	if len(seen) < 2 {
		t.Error("referral codes are not random")
	}
}

func TestNewOtpCode(t *testing.T) {
	for i := 0; i < 20; i++ {
		code, err := newOtpCode()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(code) != OtpCodeLen {
			t.Fatalf("otp %q has length %d, want %d", code, len(code), OtpCodeLen)
		}
		for _, c := range code {
			if c < '0' || c > '9' {
				t.Fatalf("otp %q contains non-digit %q", code, c)
			}
		}
	}
}
