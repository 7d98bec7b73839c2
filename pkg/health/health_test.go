package health

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunAggregatesWorstStatus(t *testing.T) {
	c := NewChecker()
	c.Register("ok", func(ctx context.Context) ComponentHealth { return ComponentHealth{Status: StatusUp} })
	c.Register("slow", func(ctx context.Context) ComponentHealth { return ComponentHealth{Status: StatusDegraded} })

	report := c.Run(context.Background())
	assert.Equal(t, StatusDegraded, report.Status)
	assert.Len(t, report.Components, 2)
	assert.Empty(t, report.Down())

	c.Register("broken", func(ctx context.Context) ComponentHealth { return ComponentHealth{Status: StatusDown} })
	report = c.Run(context.Background())
	assert.Equal(t, StatusDown, report.Status)
	assert.Equal(t, []string{"broken"}, report.Down())
}

func TestFileCheck(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "dump.bz2")
	empty := filepath.Join(dir, "empty.bz2")
	require.NoError(t, os.WriteFile(good, []byte("BZh9"), 0o644))
	require.NoError(t, os.WriteFile(empty, nil, 0o644))

	ctx := context.Background()
	assert.Equal(t, StatusUp, FileCheck(good)(ctx).Status)
	assert.Equal(t, StatusDown, FileCheck(empty)(ctx).Status)
	assert.Equal(t, StatusDown, FileCheck(dir)(ctx).Status)

	missing := FileCheck(filepath.Join(dir, "missing.bz2"))(ctx)
	assert.Equal(t, StatusDown, missing.Status)
	assert.Contains(t, missing.Message, "missing.bz2")
}

func TestPingCheck(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, StatusUp, PingCheck(time.Second, func(context.Context) error { return nil })(ctx).Status)

	down := PingCheck(time.Second, func(context.Context) error { return errors.New("dial tcp: connection refused") })(ctx)
	assert.Equal(t, StatusDown, down.Status)
	assert.Equal(t, "dial tcp: connection refused", down.Message)

	stuck := PingCheck(5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})(ctx)
	assert.Equal(t, StatusDown, stuck.Status)
}
