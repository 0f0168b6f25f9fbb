package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

type fakePooledConn struct {
	execErr  error
	executed []string
	released bool
	hijacked bool
}

func (c *fakePooledConn) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	c.executed = append(c.executed, sql)
	return pgconn.NewCommandTag("UNLISTEN"), c.execErr
}

func (c *fakePooledConn) Release() { c.released = true }

func (c *fakePooledConn) Hijack() *pgx.Conn {
	c.hijacked = true
	return nil
}

func TestReleaseListenerUnlistensBeforeRelease(t *testing.T) {
	conn := &fakePooledConn{}
	releaseListener(context.Background(), conn)

	assert.Equal(t, []string{"UNLISTEN *"}, conn.executed)
	assert.True(t, conn.released)
	assert.False(t, conn.hijacked)
}

func TestReleaseListenerDropsConnectionThatCannotReset(t *testing.T) {
	conn := &fakePooledConn{execErr: errors.New("conn closed")}
	releaseListener(context.Background(), conn)

	assert.Equal(t, []string{"UNLISTEN *"}, conn.executed)
	assert.False(t, conn.released, "a subscribed connection must not go back to the pool")
	assert.True(t, conn.hijacked)
}
