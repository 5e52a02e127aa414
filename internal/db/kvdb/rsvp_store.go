// Copyright (C) 2024 the quixsi maintainers
// See root-dir/LICENSE for more information

package kvdb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/quixsi/rsvp/internal/db"
	"github.com/quixsi/rsvp/internal/model"
)

const bucketRSVP = "rsvp_store"

var errBucketMissing = errors.New("rsvp bucket not initialized")

// RSVPStore keeps responses in a bolt bucket keyed by the bucket sequence,
// which keeps cursor order equal to append order.
type RSVPStore struct {
	db  *bolt.DB
	now func() time.Time
}

var (
	_ db.RSVPStore    = (*RSVPStore)(nil)
	_ db.RSVPImporter = (*RSVPStore)(nil)
)

func NewRSVPStore(db *bolt.DB) (*RSVPStore, error) {
	s := &RSVPStore{db: db, now: time.Now}
	return s, s.Initialize(context.Background())
}

func (r *RSVPStore) Initialize(ctx context.Context) error {
	var span trace.Span
	_, span = tracer.Start(ctx, "Initialize")
	defer span.End()

	span.AddEvent("Update bucket")
	err := r.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketRSVP))
		return err
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (r *RSVPStore) AppendRSVP(ctx context.Context, name string, guests int, message string) (*model.RSVP, error) {
	var span trace.Span
	_, span = tracer.Start(ctx, "AppendRSVP")
	defer span.End()

	if err := db.ValidateRSVP(name, guests); err != nil {
		span.RecordError(err)
		return nil, err
	}

	rsvp := &model.RSVP{
		ID:        uuid.New(),
		Timestamp: r.now().Truncate(time.Second),
		Name:      name,
		Guests:    guests,
		Message:   model.NormalizeMessage(message),
	}
	if err := r.put(rsvp); err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.AddEvent("stored", trace.WithAttributes(attribute.String("id", rsvp.ID.String())))
	return rsvp, nil
}

// ImportRSVP stores a record written elsewhere, keeping its timestamp. A
// record without ID gets a new one.
func (r *RSVPStore) ImportRSVP(ctx context.Context, rsvp *model.RSVP) error {
	var span trace.Span
	_, span = tracer.Start(ctx, "ImportRSVP")
	defer span.End()

	if err := db.ValidateRSVP(rsvp.Name, rsvp.Guests); err != nil {
		span.RecordError(err)
		return err
	}
	rsvp.Message = model.NormalizeMessage(rsvp.Message)
	if rsvp.ID == uuid.Nil {
		span.AddEvent("uuid is nil, generate a new id")
		rsvp.ID = uuid.New()
	}
	if err := r.put(rsvp); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (r *RSVPStore) put(rsvp *model.RSVP) error {
	j, err := json.Marshal(rsvp)
	if err != nil {
		return err
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(bucketRSVP))
		if err != nil {
			return err
		}
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		return bucket.Put(key(seq), j)
	})
}

func (r *RSVPStore) ListRSVPs(ctx context.Context) ([]*model.RSVP, error) {
	var span trace.Span
	_, span = tracer.Start(ctx, "ListRSVPs")
	defer span.End()

	span.AddEvent("View bucket")
	rsvps := []*model.RSVP{}
	err := r.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketRSVP))
		if bucket == nil {
			return errBucketMissing
		}
		return bucket.ForEach(func(_, v []byte) error {
			rsvp := &model.RSVP{}
			if err := json.Unmarshal(v, rsvp); err != nil {
				return err
			}
			rsvp.Timestamp = rsvp.Timestamp.Local()
			rsvps = append(rsvps, rsvp)
			return nil
		})
	})
	if errors.Is(err, errBucketMissing) {
		return []*model.RSVP{}, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return rsvps, nil
}

func key(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}
