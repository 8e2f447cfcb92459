// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 katarogu Contributors

//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/katarogu/katarogu/internal/auth"
	"github.com/katarogu/katarogu/internal/auth/postgres"
	"github.com/katarogu/katarogu/pkg/errutil"
)

func newUser(username, email string) *auth.User {
	u, err := auth.NewUser("Test User", username, email, "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA")
	Expect(err).NotTo(HaveOccurred())
	u.CreatedAt = u.CreatedAt.UTC().Truncate(time.Microsecond)
	u.UpdatedAt = u.CreatedAt
	return u
}

var _ = Describe("UserRepository", func() {
	var (
		ctx   context.Context
		users *postgres.UserRepository
	)

	BeforeEach(func() {
		ctx = context.Background()
		users = postgres.NewUserRepository(testPool)
	})

	It("round trips a user", func() {
		u := newUser("alice", "alice@example.com")
		Expect(users.Create(ctx, u)).To(Succeed())

		got, err := users.GetByID(ctx, u.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Username).To(Equal("alice"))
		Expect(got.EmailVerified).To(BeFalse())
		Expect(got.Visibility).To(Equal(auth.VisibilityPublic))
		Expect(got.CreatedAt.Equal(u.CreatedAt)).To(BeTrue())
	})

	It("names the colliding field on a racing insert", func() {
		Expect(users.Create(ctx, newUser("alice", "alice@example.com"))).To(Succeed())

		err := users.Create(ctx, newUser("alice", "other@example.com"))
		var dup *auth.DuplicateKeyError
		Expect(errors.As(err, &dup)).To(BeTrue())
		Expect(dup.Field).To(Equal("username"))

		err = users.Create(ctx, newUser("bob", "alice@example.com"))
		Expect(errors.As(err, &dup)).To(BeTrue())
		Expect(dup.Field).To(Equal("email"))
	})

	It("prefers the username match when disambiguating", func() {
		Expect(users.Create(ctx, newUser("alice", "alice@example.com"))).To(Succeed())
		Expect(users.Create(ctx, newUser("bob", "bob@example.com"))).To(Succeed())

		got, err := users.FindByUsernameOrEmail(ctx, "bob", "alice@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Username).To(Equal("bob"))

		_, err = users.FindByUsernameOrEmail(ctx, "carol", "carol@example.com")
		Expect(err).To(MatchError(auth.ErrNotFound))
	})

	It("applies partial updates", func() {
		u := newUser("alice", "alice@example.com")
		Expect(users.Create(ctx, u)).To(Succeed())

		vis := auth.VisibilityUnlisted
		Expect(users.Update(ctx, u.ID, auth.UserUpdate{Visibility: &vis})).To(Succeed())
		Expect(users.MarkEmailVerified(ctx, u.ID)).To(Succeed())

		got, err := users.GetByEmail(ctx, "alice@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Visibility).To(Equal(auth.VisibilityUnlisted))
		Expect(got.Username).To(Equal("alice"))
		Expect(got.EmailVerified).To(BeTrue())
	})
})

var _ = Describe("SessionRepository", func() {
	var (
		ctx      context.Context
		user     *auth.User
		sessions *postgres.SessionRepository
	)

	BeforeEach(func() {
		ctx = context.Background()
		user = newUser("alice", "alice@example.com")
		Expect(postgres.NewUserRepository(testPool).Create(ctx, user)).To(Succeed())
		sessions = postgres.NewSessionRepository(testPool)
	})

	It("creates, renews and deletes", func() {
		_, hash, err := auth.GenerateSessionToken()
		Expect(err).NotTo(HaveOccurred())
		s, err := auth.NewSession(user.ID, hash, time.Now().Add(time.Hour))
		Expect(err).NotTo(HaveOccurred())
		Expect(sessions.Create(ctx, s)).To(Succeed())

		got, err := sessions.GetByTokenHash(ctx, hash)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal(s.ID))
		Expect(got.UserID).To(Equal(user.ID))

		later := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Microsecond)
		Expect(sessions.UpdateExpiry(ctx, s.ID, later)).To(Succeed())
		got, err = sessions.GetByTokenHash(ctx, hash)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ExpiresAt.Equal(later)).To(BeTrue())

		Expect(sessions.Delete(ctx, s.ID)).To(Succeed())
		Expect(sessions.Delete(ctx, s.ID)).To(MatchError(auth.ErrNotFound))
	})

	It("sweeps only expired sessions", func() {
		now := time.Now()
		for i, expiry := range []time.Time{now.Add(-time.Minute), now.Add(time.Hour)} {
			s, err := auth.NewSession(user.ID, auth.HashSessionToken(string(rune('a'+i))), expiry)
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions.Create(ctx, s)).To(Succeed())
		}

		n, err := sessions.DeleteExpired(ctx, now)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(1)))

		Expect(sessions.DeleteByUser(ctx, user.ID)).To(Succeed())
		_, err = sessions.GetByTokenHash(ctx, auth.HashSessionToken("b"))
		Expect(err).To(MatchError(auth.ErrNotFound))
	})
})

var _ = Describe("VerificationCodeRepository", func() {
	It("keeps one code per user", func() {
		ctx := context.Background()
		user := newUser("alice", "alice@example.com")
		Expect(postgres.NewUserRepository(testPool).Create(ctx, user)).To(Succeed())
		codes := postgres.NewVerificationCodeRepository(testPool)

		now := time.Now().UTC().Truncate(time.Microsecond)
		for _, plain := range []string{"111111", "222222"} {
			Expect(codes.Upsert(ctx, &auth.VerificationCode{
				UserID:    user.ID,
				CodeHash:  auth.HashVerificationCode(plain),
				ExpiresAt: now.Add(auth.DefaultCodeTTL),
				CreatedAt: now,
			})).To(Succeed())
		}

		got, err := codes.GetByUser(ctx, user.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.CodeHash).To(Equal(auth.HashVerificationCode("222222")))

		Expect(codes.DeleteByUser(ctx, user.ID)).To(Succeed())
		_, err = codes.GetByUser(ctx, user.ID)
		errutil.AssertErrorWraps(GinkgoT(), err, "VERIFICATION_NOT_FOUND", auth.ErrNotFound)
	})

	It("consumes a code exactly once under concurrent checks", func() {
		ctx := context.Background()
		user := newUser("carol", "carol@example.com")
		Expect(postgres.NewUserRepository(testPool).Create(ctx, user)).To(Succeed())
		codes := postgres.NewVerificationCodeRepository(testPool)

		now := time.Now().UTC().Truncate(time.Microsecond)
		hash := auth.HashVerificationCode("424242")
		Expect(codes.Upsert(ctx, &auth.VerificationCode{
			UserID:    user.ID,
			CodeHash:  hash,
			ExpiresAt: now.Add(auth.DefaultCodeTTL),
			CreatedAt: now,
		})).To(Succeed())

		ok, err := codes.Consume(ctx, user.ID, auth.HashVerificationCode("000000"), now)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse(), "a wrong code is not consumed")

		var (
			wg      sync.WaitGroup
			matches atomic.Int32
		)
		for range 8 {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				ok, err := codes.Consume(ctx, user.ID, hash, now)
				Expect(err).NotTo(HaveOccurred())
				if ok {
					matches.Add(1)
				}
			}()
		}
		wg.Wait()
		Expect(matches.Load()).To(Equal(int32(1)))
	})

	It("discards an expired code without matching it", func() {
		ctx := context.Background()
		user := newUser("dave", "dave@example.com")
		Expect(postgres.NewUserRepository(testPool).Create(ctx, user)).To(Succeed())
		codes := postgres.NewVerificationCodeRepository(testPool)

		now := time.Now().UTC().Truncate(time.Microsecond)
		hash := auth.HashVerificationCode("424242")
		Expect(codes.Upsert(ctx, &auth.VerificationCode{
			UserID:    user.ID,
			CodeHash:  hash,
			ExpiresAt: now,
			CreatedAt: now.Add(-time.Minute),
		})).To(Succeed())

		ok, err := codes.Consume(ctx, user.ID, hash, now)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())

		_, err = codes.GetByUser(ctx, user.ID)
		Expect(err).To(MatchError(auth.ErrNotFound))
	})
})
