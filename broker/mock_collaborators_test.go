package broker

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// The fakes below follow the teacher's reverseproxy/mocks_for_test.go
// idiom: embed mock.Mock, record calls with m.Called, and return
// whatever the test stubbed.

// MockAttributeOracle is a testify/mock AttributeOracle.
type MockAttributeOracle struct {
	mock.Mock
}

func (m *MockAttributeOracle) GetAttributes(ctx context.Context, h Handle) (Attrs, error) {
	args := m.Called(ctx, h)
	a, _ := args.Get(0).(Attrs)
	return a, args.Error(1)
}

// MockPathResolver is a testify/mock PathResolver.
type MockPathResolver struct {
	mock.Mock
}

func (m *MockPathResolver) PathOf(ctx context.Context, h Handle) (string, error) {
	args := m.Called(ctx, h)
	return args.String(0), args.Error(1)
}

// MockInternTable is a testify/mock InternTable backed by an in-memory
// map, so Lookup after Intern behaves realistically in tests without
// pulling in broker/internstr.
type MockInternTable struct {
	mock.Mock
	byID map[uint64]string
	next uint64
}

func NewMockInternTable() *MockInternTable {
	return &MockInternTable{byID: make(map[uint64]string)}
}

func (m *MockInternTable) Intern(path string) InternedStr {
	m.Called(path)
	m.next++
	m.byID[m.next] = path
	return NewInternedStr(m.next)
}

func (m *MockInternTable) Release(s InternedStr) {
	m.Called(s)
	delete(m.byID, s.ID())
}

func (m *MockInternTable) Lookup(s InternedStr) (string, bool) {
	m.Called(s)
	p, ok := m.byID[s.ID()]
	return p, ok
}

// MockCredentialChecker is a testify/mock CredentialChecker.
type MockCredentialChecker struct {
	mock.Mock
}

func (m *MockCredentialChecker) TaskHas(ctx context.Context, cap Capability) bool {
	args := m.Called(ctx, cap)
	return args.Bool(0)
}

// MockLinkEnumerator is a testify/mock LinkEnumerator.
type MockLinkEnumerator struct {
	mock.Mock
}

func (m *MockLinkEnumerator) NextLink(ctx context.Context, fsid uint64, cursor uint64) (uint64, string, bool) {
	args := m.Called(ctx, fsid, cursor)
	id, _ := args.Get(0).(uint64)
	return id, args.String(1), args.Bool(2)
}

// MockClock is a testify/mock Clock, defaulting to a simple
// incrementing counter when no expectation is set.
type MockClock struct {
	mock.Mock
	counter int64
}

func (m *MockClock) Now() int64 {
	if len(m.ExpectedCalls) == 0 {
		m.counter++
		return m.counter
	}
	args := m.Called()
	n, _ := args.Get(0).(int64)
	return n
}
