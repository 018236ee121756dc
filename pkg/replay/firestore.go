package replay

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gopkg.in/yaml.v3"

	"github.com/ambientlabs/permitory/pkg/config"
	"github.com/ambientlabs/permitory/pkg/permit"
)

const defaultCollection = "permit_replay"

type FirestoreConfig struct {
	CredentialsFile string `yaml:"file"`
	Database        string `yaml:"database"`
	ProjectID       string `yaml:"project_id"`
	Collection      string `yaml:"collection"`
}

func (c *FirestoreConfig) collection() string {
	if c.Collection != "" {
		return c.Collection
	}
	return defaultCollection
}

// Firestore keeps one consumed-permit document per authorizer and runs
// check-and-commit inside a Firestore transaction, so concurrent
// submissions of the same permit race on the document version and at
// most one commit wins.
type Firestore struct {
	client *firestore.Client
	col    *firestore.CollectionRef
}

func NewFirestoreStore(ctx context.Context, conf *FirestoreConfig) (*Firestore, error) {
	var client *firestore.Client
	var err error

	if conf.Database != "" {
		client, err = firestore.NewClientWithDatabase(ctx, conf.ProjectID, conf.Database, option.WithCredentialsFile(conf.CredentialsFile))
	} else {
		client, err = firestore.NewClient(ctx, conf.ProjectID, option.WithCredentialsFile(conf.CredentialsFile))
	}
	if err != nil {
		return nil, err
	}

	return &Firestore{
		client: client,
		col:    client.Collection(conf.collection()),
	}, nil
}

// firestoreState is the document form of authorizerState. Firestore
// map keys must be strings, so the nonce set and window are stored as
// arrays; int64 is the only integer type the SDK round-trips.
type firestoreState struct {
	NextSequence int64    `firestore:"next_sequence"`
	UsedNonces   []int64  `firestore:"used_nonces"`
	Allowances   []string `firestore:"allowances"`
	Window       []int64  `firestore:"window"`
}

func (d *firestoreState) toState() *authorizerState {
	state := authorizerState{
		NextSequence: uint64(d.NextSequence),
	}
	if len(d.UsedNonces) != 0 {
		state.UsedNonces = make(map[uint64]bool, len(d.UsedNonces))
		for _, n := range d.UsedNonces {
			state.UsedNonces[uint64(n)] = true
		}
	}
	if len(d.Allowances) != 0 {
		state.Allowances = make(map[string]bool, len(d.Allowances))
		for _, id := range d.Allowances {
			state.Allowances[id] = true
		}
	}
	for _, n := range d.Window {
		state.Window = append(state.Window, uint64(n))
	}
	return &state
}

func fromState(state *authorizerState) *firestoreState {
	doc := firestoreState{
		NextSequence: int64(state.NextSequence),
	}
	for n := range state.UsedNonces {
		doc.UsedNonces = append(doc.UsedNonces, int64(n))
	}
	for id := range state.Allowances {
		doc.Allowances = append(doc.Allowances, id)
	}
	for _, n := range state.Window {
		doc.Window = append(doc.Window, int64(n))
	}
	return &doc
}

func (f *Firestore) CheckCommit(ctx context.Context, env *permit.Envelope) error {
	docRef := f.col.Doc(env.Domain.Cluster.String()).Collection("authorizers").Doc(env.Authorizer.String())

	return f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		docSnap, err := tx.Get(docRef)

		errCode := status.Code(err)
		if errCode != codes.NotFound && errCode != codes.OK {
			return err
		}

		var state *authorizerState
		if err == nil {
			var doc firestoreState
			if err := docSnap.DataTo(&doc); err != nil {
				return err
			}
			state = doc.toState()
		} else {
			state = &authorizerState{}
		}

		if err := state.checkCommit(env); err != nil {
			return err
		}
		return tx.Set(docRef, fromState(state))
	})
}

func init() {
	RegisterStore("firestore", func(ctx context.Context, node *yaml.Node, global config.GlobalContext) (storeImpl, error) {
		var conf FirestoreConfig
		if node != nil && node.Kind != 0 {
			if err := node.Decode(&conf); err != nil {
				return nil, err
			}
		}
		return NewFirestoreStore(ctx, &conf)
	})
}
