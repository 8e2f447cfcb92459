// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 katarogu Contributors

// Package mocks provides testify mocks for the auth interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/katarogu/katarogu/internal/auth"
)

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

func register(m *mock.Mock, t testingT) {
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
}

// MockPasswordHasher mocks auth.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a MockPasswordHasher that asserts its
// expectations when the test ends.
func NewMockPasswordHasher(t testingT) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	register(&m.Mock, t)
	return m
}

func (m *MockPasswordHasher) Hash(password string) (string, error) {
	ret := m.Called(password)
	return ret.String(0), ret.Error(1)
}

func (m *MockPasswordHasher) Verify(password, hash string) (bool, error) {
	ret := m.Called(password, hash)
	return ret.Bool(0), ret.Error(1)
}

func (m *MockPasswordHasher) NeedsUpgrade(hash string) bool {
	ret := m.Called(hash)
	return ret.Bool(0)
}

// MockUserRepository mocks auth.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

// NewMockUserRepository creates a MockUserRepository.
func NewMockUserRepository(t testingT) *MockUserRepository {
	m := &MockUserRepository{}
	register(&m.Mock, t)
	return m
}

func userAt(ret mock.Arguments, i int) *auth.User {
	if u, ok := ret.Get(i).(*auth.User); ok {
		return u
	}
	return nil
}

func (m *MockUserRepository) Create(ctx context.Context, user *auth.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*auth.User, error) {
	ret := m.Called(ctx, id)
	return userAt(ret, 0), ret.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	ret := m.Called(ctx, email)
	return userAt(ret, 0), ret.Error(1)
}

func (m *MockUserRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*auth.User, error) {
	ret := m.Called(ctx, username, email)
	return userAt(ret, 0), ret.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, id string, update auth.UserUpdate) error {
	return m.Called(ctx, id, update).Error(0)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

func (m *MockUserRepository) MarkEmailVerified(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// MockSessionRepository mocks auth.SessionRepository.
type MockSessionRepository struct {
	mock.Mock
}

// NewMockSessionRepository creates a MockSessionRepository.
func NewMockSessionRepository(t testingT) *MockSessionRepository {
	m := &MockSessionRepository{}
	register(&m.Mock, t)
	return m
}

func (m *MockSessionRepository) Create(ctx context.Context, session *auth.Session) error {
	return m.Called(ctx, session).Error(0)
}

func (m *MockSessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	ret := m.Called(ctx, tokenHash)
	s, _ := ret.Get(0).(*auth.Session)
	return s, ret.Error(1)
}

func (m *MockSessionRepository) UpdateExpiry(ctx context.Context, id ulid.ULID, expiresAt time.Time) error {
	return m.Called(ctx, id, expiresAt).Error(0)
}

func (m *MockSessionRepository) Delete(ctx context.Context, id ulid.ULID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockSessionRepository) DeleteByUser(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ret := m.Called(ctx, now)
	n, _ := ret.Get(0).(int64)
	return n, ret.Error(1)
}

// MockVerificationCodeRepository mocks auth.VerificationCodeRepository.
type MockVerificationCodeRepository struct {
	mock.Mock
}

// NewMockVerificationCodeRepository creates a MockVerificationCodeRepository.
func NewMockVerificationCodeRepository(t testingT) *MockVerificationCodeRepository {
	m := &MockVerificationCodeRepository{}
	register(&m.Mock, t)
	return m
}

func (m *MockVerificationCodeRepository) Upsert(ctx context.Context, code *auth.VerificationCode) error {
	return m.Called(ctx, code).Error(0)
}

func (m *MockVerificationCodeRepository) GetByUser(ctx context.Context, userID string) (*auth.VerificationCode, error) {
	ret := m.Called(ctx, userID)
	c, _ := ret.Get(0).(*auth.VerificationCode)
	return c, ret.Error(1)
}

func (m *MockVerificationCodeRepository) Consume(ctx context.Context, userID, codeHash string, now time.Time) (bool, error) {
	ret := m.Called(ctx, userID, codeHash, now)
	ok, _ := ret.Get(0).(bool)
	return ok, ret.Error(1)
}

func (m *MockVerificationCodeRepository) DeleteByUser(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockVerificationCodeRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ret := m.Called(ctx, now)
	n, _ := ret.Get(0).(int64)
	return n, ret.Error(1)
}

// MockCodeSender mocks auth.CodeSender.
type MockCodeSender struct {
	mock.Mock
}

// NewMockCodeSender creates a MockCodeSender.
func NewMockCodeSender(t testingT) *MockCodeSender {
	m := &MockCodeSender{}
	register(&m.Mock, t)
	return m
}

func (m *MockCodeSender) SendVerificationCode(ctx context.Context, to, name, code string) error {
	return m.Called(ctx, to, name, code).Error(0)
}

var (
	_ auth.PasswordHasher             = (*MockPasswordHasher)(nil)
	_ auth.UserRepository             = (*MockUserRepository)(nil)
	_ auth.SessionRepository          = (*MockSessionRepository)(nil)
	_ auth.VerificationCodeRepository = (*MockVerificationCodeRepository)(nil)
	_ auth.CodeSender                 = (*MockCodeSender)(nil)
)
