package engine

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"

	"homeworks/internal/domain"
	"homeworks/internal/notify"
	"homeworks/internal/repo"
)

func requireName(userID, name string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.Validation("user_id is required")
	}
	if strings.TrimSpace(name) == "" {
		return domain.Validation("name is required")
	}
	return nil
}

func profileConflict(err error, kind, userID string) error {
	if errors.Is(err, repo.ErrConflict) {
		return domain.Conflict("user %s already has a %s profile", userID, kind)
	}
	return err
}

func (e Engine) RegisterHomeowner(ctx context.Context, userID, name string) (domain.Homeowner, error) {
	if err := requireName(userID, name); err != nil {
		return domain.Homeowner{}, err
	}
	h := domain.Homeowner{ID: newID(), UserID: userID, Name: strings.TrimSpace(name), CreatedAt: e.stamp()}
	err := e.inTx(ctx, "register_homeowner", func(t *txn) error {
		return profileConflict(e.Repo.InsertHomeowner(ctx, t, h), "homeowner", userID)
	})
	if err != nil {
		return domain.Homeowner{}, err
	}
	return h, nil
}

// RegisterDesigner creates an unverified designer profile.
func (e Engine) RegisterDesigner(ctx context.Context, userID, name, bio string) (domain.Designer, error) {
	if err := requireName(userID, name); err != nil {
		return domain.Designer{}, err
	}
	d := domain.Designer{ID: newID(), UserID: userID, Name: strings.TrimSpace(name), Bio: bio, CreatedAt: e.stamp()}
	err := e.inTx(ctx, "register_designer", func(t *txn) error {
		return profileConflict(e.Repo.InsertDesigner(ctx, t, d), "designer", userID)
	})
	if err != nil {
		return domain.Designer{}, err
	}
	return d, nil
}

func (e Engine) RegisterContractor(ctx context.Context, userID, name, trade string) (domain.Contractor, error) {
	if err := requireName(userID, name); err != nil {
		return domain.Contractor{}, err
	}
	c := domain.Contractor{ID: newID(), UserID: userID, Name: strings.TrimSpace(name), Trade: trade, CreatedAt: e.stamp()}
	err := e.inTx(ctx, "register_contractor", func(t *txn) error {
		return profileConflict(e.Repo.InsertContractor(ctx, t, c), "contractor", userID)
	})
	if err != nil {
		return domain.Contractor{}, err
	}
	return c, nil
}

// VerifyDesigner sets the verified flag and asks the search index to refresh
// the profile. Indexing is fire-and-forget.
func (e Engine) VerifyDesigner(ctx context.Context, designerID string, verified bool) (domain.Designer, error) {
	var d domain.Designer
	err := e.inTx(ctx, "verify_designer", func(t *txn) error {
		if err := e.Repo.SetDesignerVerified(ctx, t, designerID, verified); err != nil {
			return missing(err, "designer %s", designerID)
		}
		var err error
		d, err = e.Repo.GetDesigner(ctx, t, designerID)
		if err != nil {
			return err
		}
		t.notify(notify.Event{
			Type:     notify.TypeSearchReindex,
			EntityID: d.ID,
			UserID:   d.UserID,
			Payload:  map[string]any{"kind": "designer", "verified": verified},
		})
		return nil
	})
	if err != nil {
		return domain.Designer{}, err
	}
	return d, nil
}

func (e Engine) VerifyContractor(ctx context.Context, contractorID string, verified bool) (domain.Contractor, error) {
	var c domain.Contractor
	err := e.inTx(ctx, "verify_contractor", func(t *txn) error {
		if err := e.Repo.SetContractorVerified(ctx, t, contractorID, verified); err != nil {
			return missing(err, "contractor %s", contractorID)
		}
		var err error
		c, err = e.Repo.GetContractor(ctx, t, contractorID)
		if err != nil {
			return err
		}
		t.notify(notify.Event{
			Type:     notify.TypeSearchReindex,
			EntityID: c.ID,
			UserID:   c.UserID,
			Payload:  map[string]any{"kind": "contractor", "verified": verified},
		})
		return nil
	})
	if err != nil {
		return domain.Contractor{}, err
	}
	return c, nil
}

// AddProperty registers a property owned by the caller's homeowner profile.
func (e Engine) AddProperty(ctx context.Context, userID, address string) (domain.Property, error) {
	if strings.TrimSpace(address) == "" {
		return domain.Property{}, domain.Validation("address is required")
	}
	p := domain.Property{ID: newID(), Address: strings.TrimSpace(address), CreatedAt: e.stamp()}
	err := e.inTx(ctx, "add_property", func(t *txn) error {
		h, err := e.homeownerFor(ctx, t, userID)
		if err != nil {
			return err
		}
		p.HomeownerID = h.ID
		return e.Repo.InsertProperty(ctx, t, p)
	})
	if err != nil {
		return domain.Property{}, err
	}
	return p, nil
}

func (e Engine) ListDesigners(ctx context.Context, verifiedOnly bool) ([]domain.Designer, error) {
	var out []domain.Designer
	err := e.read(ctx, "list_designers", func(q repo.Querier) error {
		var err error
		out, err = e.Repo.ListDesigners(ctx, q, verifiedOnly)
		return err
	})
	return out, err
}

// Profiles is every profile a user holds.
type Profiles struct {
	UserID    string            `json:"user_id"`
	Homeowner *domain.Homeowner `json:"homeowner,omitempty"`
	Designer  *domain.Designer  `json:"designer,omitempty"`
}

func (e Engine) Me(ctx context.Context, userID string) (Profiles, error) {
	out := Profiles{UserID: userID}
	err := e.read(ctx, "me", func(q repo.Querier) error {
		h, err := e.Repo.GetHomeownerByUser(ctx, q, userID)
		switch {
		case err == nil:
			out.Homeowner = &h
		case !errors.Is(err, repo.ErrNotFound):
			return err
		}
		d, err := e.Repo.GetDesignerByUser(ctx, q, userID)
		switch {
		case err == nil:
			out.Designer = &d
		case !errors.Is(err, repo.ErrNotFound):
			return err
		}
		return nil
	})
	return out, err
}

// CreateAPIKey issues a key for userID. The raw key is returned once; only
// its hash is stored.
func (e Engine) CreateAPIKey(ctx context.Context, userID, name string) (domain.APIKey, string, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.APIKey{}, "", domain.Validation("user_id is required")
	}
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return domain.APIKey{}, "", err
	}
	raw := "hw_" + hex.EncodeToString(buf)
	key := domain.APIKey{
		ID:        newID(),
		UserID:    userID,
		Name:      name,
		KeyHash:   repo.HashAPIKey(raw),
		CreatedAt: e.stamp(),
	}
	err := e.inTx(ctx, "create_api_key", func(t *txn) error {
		return e.Repo.InsertAPIKey(ctx, t, key)
	})
	if err != nil {
		return domain.APIKey{}, "", err
	}
	return key, raw, nil
}

func (e Engine) ListAPIKeys(ctx context.Context, userID string) ([]domain.APIKey, error) {
	var out []domain.APIKey
	err := e.read(ctx, "list_api_keys", func(q repo.Querier) error {
		var err error
		out, err = e.Repo.ListAPIKeys(ctx, q, userID)
		return err
	})
	return out, err
}

func (e Engine) RevokeAPIKey(ctx context.Context, userID, keyID string) error {
	return e.inTx(ctx, "revoke_api_key", func(t *txn) error {
		return missing(e.Repo.DeleteAPIKey(ctx, t, userID, keyID), "api key %s", keyID)
	})
}

// AuthenticateAPIKey returns the user owning raw.
func (e Engine) AuthenticateAPIKey(ctx context.Context, raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", domain.Validation("api key required")
	}
	key, err := e.Repo.GetAPIKeyByHash(ctx, e.DB, repo.HashAPIKey(raw))
	if err != nil {
		return "", missing(err, "api key")
	}
	return key.UserID, nil
}
