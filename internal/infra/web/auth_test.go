//go:build !integration

package web_test

import (
	"testing"
	"time"

	"practice-payments/internal/infra/web"
)

func TestPayTokenManager(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		m := web.NewPayTokenManager("secret", time.Hour)

		tok, err := m.Mint("tenant-1", "inv-1")
		if err != nil {
			t.Fatalf("Mint: %v", err)
		}
		claims, err := m.Parse(tok)
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if claims.TenantID != "tenant-1" || claims.InvoiceID != "inv-1" {
			t.Errorf("unexpected claims: %+v", claims)
		}
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		m := web.NewPayTokenManager("secret", -time.Hour)

		tok, err := m.Mint("tenant-1", "inv-1")
		if err != nil {
			t.Fatalf("Mint: %v", err)
		}
		if _, err := m.Parse(tok); err == nil {
			t.Error("expected an expired token to fail parsing")
		}
	})

	t.Run("token signed with another secret is rejected", func(t *testing.T) {
		other := web.NewPayTokenManager("other-secret", time.Hour)
		tok, err := other.Mint("tenant-1", "inv-1")
		if err != nil {
			t.Fatalf("Mint: %v", err)
		}

		m := web.NewPayTokenManager("secret", time.Hour)
		if _, err := m.Parse(tok); err == nil {
			t.Error("expected a foreign token to fail parsing")
		}
	})
}
