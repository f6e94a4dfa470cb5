// Package linkage maps local entity ids to processor-side ids and guarantees
// that each mapping is created at most once.
package linkage

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/singleflight"
)

// Kind names one of the linkage tables.
type Kind string

const (
	KindCustomer     Kind = "customer"
	KindPlan         Kind = "plan"
	KindSubscription Kind = "subscription"
)

// Store is the narrow key-value contract the platform persistence must offer.
type Store interface {
	GetLinkage(ctx context.Context, kind Kind, localID string) (remoteID string, found bool, err error)
	// PutLinkageIfAbsent writes remoteID unless a value already exists, and
	// returns whichever value is stored afterwards.
	PutLinkageIfAbsent(ctx context.Context, kind Kind, localID, remoteID string) (winner string, err error)
	FindLocalID(ctx context.Context, kind Kind, remoteID string) (localID string, found bool, err error)
}

// Locker serialises creation of one key across processes.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// CreateFunc creates the processor-side object and returns its id.
type CreateFunc func(ctx context.Context) (string, error)

// Resolver implements look-up-before-create on top of a Store.
type Resolver struct {
	store  Store
	locker Locker
	group  singleflight.Group
}

// NewResolver wires a Resolver. A nil locker means single-instance operation.
func NewResolver(store Store, locker Locker) *Resolver {
	if locker == nil {
		locker = NopLocker{}
	}
	return &Resolver{store: store, locker: locker}
}

// Get returns the linked remote id without creating anything.
func (r *Resolver) Get(ctx context.Context, kind Kind, localID string) (string, bool, error) {
	remoteID, found, err := r.store.GetLinkage(ctx, kind, localID)
	if err != nil {
		return "", false, fmt.Errorf("linkage: get %s %s: %w", kind, localID, err)
	}
	return remoteID, found, nil
}

// Lookup resolves a remote id back to the local id.
func (r *Resolver) Lookup(ctx context.Context, kind Kind, remoteID string) (string, bool, error) {
	localID, found, err := r.store.FindLocalID(ctx, kind, remoteID)
	if err != nil {
		return "", false, fmt.Errorf("linkage: lookup %s %s: %w", kind, remoteID, err)
	}
	return localID, found, nil
}

// createTimeout bounds one shared creation: lock wait, processor call and
// linkage write.
const createTimeout = 2 * time.Minute

type outcome struct {
	remoteID string
	created  bool
}

// GetOrCreate returns the remote id linked to (kind, localID), calling create
// and persisting its result only when no linkage exists yet. created reports
// whether resolving stored a new linkage; concurrent callers for the same key
// share one creation and all see the same result. A caller whose ctx ends
// stops waiting, but the shared creation keeps running for the others.
func (r *Resolver) GetOrCreate(ctx context.Context, kind Kind, localID string, create CreateFunc) (remoteID string, created bool, err error) {
	if remoteID, found, err := r.Get(ctx, kind, localID); err != nil || found {
		return remoteID, false, err
	}

	key := lockKey(kind, localID)
	ch := r.group.DoChan(key, func() (interface{}, error) {
		// Shared by every caller of key, so it must outlive any one of them.
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), createTimeout)
		defer cancel()
		return r.createLocked(shared, kind, localID, key, create)
	})

	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", false, res.Err
		}
		out := res.Val.(outcome)
		return out.remoteID, out.created, nil
	}
}

func (r *Resolver) createLocked(ctx context.Context, kind Kind, localID, key string, create CreateFunc) (outcome, error) {
	unlock, err := r.locker.Lock(ctx, key)
	if err != nil {
		return outcome{}, fmt.Errorf("linkage: lock %s: %w", key, err)
	}
	defer unlock()

	if remoteID, found, err := r.Get(ctx, kind, localID); err != nil || found {
		return outcome{remoteID: remoteID}, err
	}

	remoteID, err := create(ctx)
	if err != nil {
		return outcome{}, err
	}

	winner, err := r.store.PutLinkageIfAbsent(ctx, kind, localID, remoteID)
	if err != nil {
		return outcome{}, fmt.Errorf("linkage: put %s %s: %w", kind, localID, err)
	}
	if winner != remoteID {
		log.Printf("[linkage] %s %s already linked to %s; processor object %s is orphaned", kind, localID, winner, remoteID)
		return outcome{remoteID: winner}, nil
	}
	return outcome{remoteID: remoteID, created: true}, nil
}

func lockKey(kind Kind, localID string) string {
	return "payarc-mid:linkage:" + string(kind) + ":" + localID
}
