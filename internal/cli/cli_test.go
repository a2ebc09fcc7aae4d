package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestSessionCommand_IssuesAdminToken(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_ADDR", mr.Addr())

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"session", "--user", "ops", "--admin"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		sessionUser, sessionAdmin = "", false
	})

	require.NoError(t, Execute())

	token := strings.TrimSpace(out.String())
	require.NotEmpty(t, token)

	val, err := mr.Get("session:" + token)
	require.NoError(t, err)
	assert.Equal(t, "ops:admin", val)
	assert.Equal(t, 168*time.Hour, mr.TTL("session:"+token))
}

func TestSessionCommand_RequiresUser(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_ADDR", mr.Addr())

	rootCmd.SetArgs([]string{"session"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	assert.ErrorContains(t, Execute(), "--user is required")
}

func TestSQLCredentials(t *testing.T) {
	cfg, err := loadConfig()
	require.NoError(t, err)

	creds := sqlCredentials(cfg)
	assert.Equal(t, cfg.DBDriver, creds.Driver)
	assert.Equal(t, cfg.DBDSN, creds.DSN)
	assert.Equal(t, "./internal/repository/migrations", creds.MigrationsDirPath)
}

func TestWatchHealth_TracksDependencies(t *testing.T) {
	hs := health.NewServer()
	var failing atomic.Bool
	failing.Store(true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		watchHealth(ctx, hs, func(context.Context) error {
			if failing.Load() {
				return errors.New("redis down")
			}
			return nil
		}, 20*time.Millisecond)
	}()

	servingStatus := func() healthpb.HealthCheckResponse_ServingStatus {
		resp, err := hs.Check(context.Background(), &healthpb.HealthCheckRequest{})
		if err != nil {
			return healthpb.HealthCheckResponse_UNKNOWN
		}
		return resp.Status
	}

	assert.Eventually(t, func() bool {
		return servingStatus() == healthpb.HealthCheckResponse_NOT_SERVING
	}, time.Second, 10*time.Millisecond)

	failing.Store(false)
	assert.Eventually(t, func() bool {
		return servingStatus() == healthpb.HealthCheckResponse_SERVING
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
