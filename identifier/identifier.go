// Package identifier mints the permanent identifiers given to
// entities, events and lineages.
package identifier

import (
	"fmt"
	"github.com/dataconservancy/ingest/util"
	"github.com/satori/go.uuid"
	"strings"
)

// Service mints globally unique identifiers. Param typeHint says what
// kind of thing the id is for; see the constants.IdType values.
type Service interface {
	Create(typeHint string) (string, error)

	// IsPermanent returns true if id is well formed and looks like
	// one this service minted.
	IsPermanent(id string) bool
}

// BulkService is implemented by services that can mint many ids in
// one round trip.
type BulkService interface {
	Service
	CreateBulk(n int, typeHint string) ([]string, error)
}

// CreateBulk mints n ids with one call to svc if it is a
// BulkService, or with n calls to Create if it isn't. Either way the
// ids come back in the order they were minted.
func CreateBulk(svc Service, n int, typeHint string) ([]string, error) {
	if n < 0 {
		return nil, fmt.Errorf("Param n cannot be negative.")
	}
	if n == 0 {
		return make([]string, 0), nil
	}
	if bulk, ok := svc.(BulkService); ok {
		ids, err := bulk.CreateBulk(n, typeHint)
		if err != nil {
			return nil, err
		}
		if len(ids) != n {
			return nil, fmt.Errorf("Identifier service returned %d ids, expected %d", len(ids), n)
		}
		return ids, nil
	}
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		id, err := svc.Create(typeHint)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// UUIDService mints ids of the form <BaseURL>/<typeHint>/<uuid>.
// It needs no coordination, so it can run in every process that
// mints ids.
type UUIDService struct {
	BaseURL string
}

func NewUUIDService(baseURL string) *UUIDService {
	return &UUIDService{BaseURL: strings.TrimRight(baseURL, "/")}
}

func (svc *UUIDService) Create(typeHint string) (string, error) {
	if typeHint == "" {
		return "", fmt.Errorf("Param typeHint cannot be empty.")
	}
	if strings.Contains(typeHint, "/") {
		return "", fmt.Errorf("Param typeHint cannot contain a slash.")
	}
	return fmt.Sprintf("%s/%s/%s", svc.BaseURL, typeHint, uuid.NewV4().String()), nil
}

func (svc *UUIDService) CreateBulk(n int, typeHint string) ([]string, error) {
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		id, err := svc.Create(typeHint)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// IsPermanent returns true for ids with this service's base URL,
// a type hint and a UUID.
func (svc *UUIDService) IsPermanent(id string) bool {
	prefix := svc.BaseURL + "/"
	if !strings.HasPrefix(id, prefix) {
		return false
	}
	parts := strings.Split(strings.TrimPrefix(id, prefix), "/")
	if len(parts) != 2 || parts[0] == "" {
		return false
	}
	_, err := uuid.FromString(parts[1])
	return err == nil && util.LooksLikeUUID(parts[1])
}
