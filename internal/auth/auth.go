// Copyright (C) 2024 the quixsi maintainers
// See root-dir/LICENSE for more information

// Package auth decides whether a secret entered on the admin page grants
// access.
package auth

import (
	"context"
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

type Checker interface {
	Check(ctx context.Context, secret string) bool
}

// NewPlain compares against a password kept in memory. An empty password
// rejects everything.
func NewPlain(password string) *Plain {
	return &Plain{password: []byte(password)}
}

type Plain struct {
	password []byte
}

func (p *Plain) Check(ctx context.Context, secret string) bool {
	_, span := tracer.Start(ctx, "Plain.Check")
	defer span.End()

	if len(p.password) == 0 || secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare(p.password, []byte(secret)) == 1
}

// NewBcrypt checks secrets against a bcrypt hash.
func NewBcrypt(hash string) (*Bcrypt, error) {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, err
	}
	return &Bcrypt{hash: []byte(hash)}, nil
}

type Bcrypt struct {
	hash []byte
}

func (b *Bcrypt) Check(ctx context.Context, secret string) bool {
	_, span := tracer.Start(ctx, "Bcrypt.Check")
	defer span.End()

	if secret == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(b.hash, []byte(secret)) == nil
}

// Deny rejects every secret. It is used when no admin credential is
// configured.
type Deny struct{}

func (Deny) Check(context.Context, string) bool { return false }
