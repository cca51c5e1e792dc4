package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

// run executes the root command with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		// flags keep their values between Execute calls
		previewCmd.Flags().Set("from", "")
		previewCmd.Flags().Set("to", "")
		previewCmd.Flags().Set("tz", "UTC")
		tokenCmd.Flags().Set("secret", "")
		tokenCmd.Flags().Set("role", "CUSTOMER")
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestPreviewSchedule(t *testing.T) {
	// 2024-01-01 is a Monday.
	out, err := run(t, "preview-schedule", `{"mon-wed":"07:00, 18:30","sun":"10:00","xyz":"09:00"}`,
		"--from", "2024-01-01", "--to", "2024-01-07", "--capacity", "12")
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if got := lines[len(lines)-1]; got != "7 sessions" {
		t.Errorf("summary = %q, want 7 sessions", got)
	}
	if !strings.HasPrefix(lines[0], "warning: xyz") {
		t.Errorf("first line = %q, want the unknown token warning", lines[0])
	}
	if want := "Mon 2024-01-01  07:00-08:00  capacity=12"; lines[1] != want {
		t.Errorf("first session = %q, want %q", lines[1], want)
	}
	if want := "Sun 2024-01-07  10:00-11:00  capacity=12"; lines[len(lines)-2] != want {
		t.Errorf("last session = %q, want %q", lines[len(lines)-2], want)
	}
}

func TestPreviewSchedule_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no sessions", []string{"preview-schedule", `{"xyz":"09:00"}`}},
		{"not json", []string{"preview-schedule", `mon 9am`}},
		{"reversed", []string{"preview-schedule", `{"daily":"09:00"}`, "--from", "2024-01-07", "--to", "2024-01-01"}},
		{"bad zone", []string{"preview-schedule", `{"daily":"09:00"}`, "--tz", "Mars/Olympus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.args...); err == nil {
				t.Errorf("args %v: expected error", tt.args)
			}
		})
	}
}

func TestToken(t *testing.T) {
	out, err := run(t, "token", "--user", "42", "--role", "seller", "--secret", "s3cret")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	tok, err := jwt.Parse(strings.TrimSpace(out), func(*jwt.Token) (any, error) { return []byte("s3cret"), nil })
	if err != nil || !tok.Valid {
		t.Fatalf("parse token: %v", err)
	}
	claims := tok.Claims.(jwt.MapClaims)
	if claims["role"] != "SELLER" || claims["sub"] != float64(42) {
		t.Errorf("claims = %v", claims)
	}

	t.Setenv("JWT_SECRET", "")
	if _, err := run(t, "token", "--user", "42"); err == nil {
		t.Error("expected error without a secret")
	}
	if _, err := run(t, "token", "--user", "42", "--role", "owner", "--secret", "x"); err == nil {
		t.Error("expected error for an unknown role")
	}
}
