package publish

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Harshitk-cp/thoughtgraph/internal/domain"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockConn struct {
	msgs    []*nats.Msg
	err     error
	drained bool
}

func (m *mockConn) PublishMsg(msg *nats.Msg) error {
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msg)
	return nil
}

func (m *mockConn) Drain() error {
	m.drained = true
	return nil
}

func testBundle() *domain.Bundle {
	id := uuid.New()
	return &domain.Bundle{
		Candidate: domain.CandidateStatement{
			ID:     id,
			Triple: domain.Triple{Subject: "entity:alice", Predicate: "predicate:lives-in", Object: "entity:paris"},
		},
		Thoughts: []domain.Thought{{
			Kind:    domain.ThoughtNovelty,
			Trace:   domain.Trace{Candidate: id},
			Novelty: &domain.Novelty{SubjectNew: true, ObjectNew: true},
		}},
	}
}

func TestNATSPublisher_Publish(t *testing.T) {
	conn := &mockConn{}
	p := NewNATSPublisher(conn, "", zap.NewNop())
	b := testBundle()

	require.NoError(t, p.Publish(context.Background(), b))
	require.Len(t, conn.msgs, 1)

	msg := conn.msgs[0]
	assert.Equal(t, DefaultSubject, msg.Subject)
	assert.Equal(t, b.Candidate.ID.String(), msg.Header.Get("Candidate-Id"))

	var got domain.Bundle
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, b.Candidate.ID, got.Candidate.ID)
	require.Len(t, got.Thoughts, 1)
	assert.True(t, got.Thoughts[0].Novelty.SubjectNew)
}

func TestNATSPublisher_PublishError(t *testing.T) {
	conn := &mockConn{err: nats.ErrConnectionClosed}
	p := NewNATSPublisher(conn, "custom.subject", zap.NewNop())

	err := p.Publish(context.Background(), testBundle())
	assert.True(t, errors.Is(err, nats.ErrConnectionClosed))
	assert.Equal(t, "custom.subject", p.Subject())
}

func TestNATSPublisher_CancelledContext(t *testing.T) {
	conn := &mockConn{}
	p := NewNATSPublisher(conn, "", zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, p.Publish(ctx, testBundle()))
	assert.Empty(t, conn.msgs)
}

func TestNATSPublisher_Close(t *testing.T) {
	conn := &mockConn{}
	NewNATSPublisher(conn, "", zap.NewNop()).Close()
	assert.True(t, conn.drained)
}
