//go:build !integration

package gateway

import (
	"errors"
	"testing"

	"practice-payments/internal/domain"
)

func TestRegistry_Resolve(t *testing.T) {
	r := NewRegistry(NewPayTRAdapter(nil), NewMollieAdapter(nil), NewPayfastAdapter())

	t.Run("resolves registered vendors case-insensitively", func(t *testing.T) {
		for _, name := range []string{"paytr", "PayTR", "mollie", "payfast"} {
			a, err := r.Resolve(name)
			if err != nil {
				t.Fatalf("Resolve(%q): %v", name, err)
			}
			if a == nil {
				t.Fatalf("Resolve(%q): nil adapter", name)
			}
		}
	})

	t.Run("unknown vendor fails", func(t *testing.T) {
		_, err := r.Resolve("stripe")
		if !errors.Is(err, domain.ErrUnknownGateway) {
			t.Errorf("expected ErrUnknownGateway, got %v", err)
		}
	})
}
