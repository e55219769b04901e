package invoices

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/llauna/administracionFincas-sub000/internal/movements"
	"github.com/llauna/administracionFincas-sub000/internal/shared"
)

// minFallbackPrefix is the shortest prefix the fallback delete accepts.
const minFallbackPrefix = 3

// GroupDeleter removes ledger lines by concept. Implementations run inside a transaction.
type GroupDeleter interface {
	DeleteByConcept(ctx context.Context, concept string, scope movements.DeleteScope) (int64, error)
	DeleteByConceptPrefix(ctx context.Context, prefix string, scope movements.DeleteScope) (int64, error)
}

// FallbackPrefix returns the part of key before the first ':' and whether it is long
// enough to be used for a prefix match.
func FallbackPrefix(key string) (string, bool) {
	prefix := key
	if idx := strings.Index(prefix, ":"); idx >= 0 {
		prefix = prefix[:idx]
	}
	prefix = strings.TrimSpace(prefix)
	return prefix, utf8.RuneCountInString(prefix) >= minFallbackPrefix
}

// DeleteGroup deletes the lines whose concept equals in.Key within the supplier and
// community of in. When nothing matches it retries once with a case-insensitive
// starts-with match on FallbackPrefix(in.Key) under the same scope.
func DeleteGroup(ctx context.Context, d GroupDeleter, in DeleteInput) (DeleteResult, error) {
	key := strings.TrimSpace(in.Key)
	if key == "" {
		return DeleteResult{}, fmt.Errorf("%w: description key required", shared.ErrValidation)
	}
	scope := movements.DeleteScope{SupplierID: in.SupplierID, CommunityID: in.CommunityID}
	n, err := d.DeleteByConcept(ctx, key, scope)
	if err != nil {
		return DeleteResult{}, err
	}
	if n > 0 {
		return DeleteResult{Deleted: n}, nil
	}
	prefix, ok := FallbackPrefix(key)
	if !ok {
		return DeleteResult{}, nil
	}
	n, err = d.DeleteByConceptPrefix(ctx, prefix, scope)
	if err != nil {
		return DeleteResult{}, err
	}
	return DeleteResult{Deleted: n, Fallback: true}, nil
}
