package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Profiles[ClassJobApplication] = Profile{RequestsPerHour: 5, ConcurrentLimit: 2, BurstAllowance: 0, Priority: 2}
	cfg.MaxGlobalConcurrent = 2
	cfg.GlobalRecoveryTime = 50 * time.Millisecond
	cfg.SweepInterval = time.Hour
	return cfg
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ClassHealth, Classify("GET", "/health"))
	assert.Equal(t, ClassAdmin, Classify("POST", "/v1/control"))
	assert.Equal(t, ClassJobApplication, Classify("POST", "/v1/applications"))
	assert.Equal(t, ClassJobView, Classify("GET", "/v1/applications/123"))
	assert.Equal(t, ClassGeneral, Classify("GET", "/v1/whatever"))
}

func TestClassifyRequest_DowngradesAdminWithoutBearerToken(t *testing.T) {
	assert.Equal(t, ClassGeneral, ClassifyRequest("POST", "/v1/control", ""))
	assert.Equal(t, ClassGeneral, ClassifyRequest("POST", "/v1/control", "Bearer not-a-jwt"))
	assert.Equal(t, ClassAdmin, ClassifyRequest("POST", "/v1/control", "Bearer "+validUnsignedJWT))
}

// validUnsignedJWT is a syntactically well-formed (but unsigned) JWT:
// header.payload.signature, each segment valid base64url.
const validUnsignedJWT = "eyJhbGciOiJub25lIn0.eyJzdWIiOiJ0ZXN0In0."

// S5 — Global admission: with max_global_concurrent=2, three concurrent
// job_application submissions: exactly two proceed, the third is
// rejected with an overload-style reason and a retry-after hint.
func TestAdmit_GlobalConcurrencyCap(t *testing.T) {
	c := NewController(testConfig(), NewMemoryWindowStore(), nil, nil)
	defer c.Close()
	ctx := context.Background()

	d1 := c.Admit(ctx, "1.1.1.1", ClassJobApplication)
	d2 := c.Admit(ctx, "2.2.2.2", ClassJobApplication)
	d3 := c.Admit(ctx, "3.3.3.3", ClassJobApplication)

	require.True(t, d1.Admitted)
	require.True(t, d2.Admitted)
	require.False(t, d3.Admitted)
	assert.Equal(t, "global_concurrency_exceeded", d3.Reason)
	assert.Greater(t, d3.RetryAfter, time.Duration(0))
}

// S6 — Reputation decay: a client rate-limited once (bad) then
// admitted 50 times (good) has reputation restored to >= 0.6.
func TestAdmit_ReputationRecovers(t *testing.T) {
	cfg := testConfig()
	cfg.Profiles[ClassGeneral] = Profile{RequestsPerHour: 1, ConcurrentLimit: 100, BurstAllowance: 0}
	c := NewController(cfg, NewMemoryWindowStore(), nil, nil)
	defer c.Close()
	ctx := context.Background()

	d1 := c.Admit(ctx, "9.9.9.9", ClassGeneral)
	require.True(t, d1.Admitted)
	c.Release("9.9.9.9", ClassGeneral)

	d2 := c.Admit(ctx, "9.9.9.9", ClassGeneral)
	require.False(t, d2.Admitted)
	c.Release("9.9.9.9", ClassGeneral)

	before := c.CurrentReputation("9.9.9.9")
	assert.Less(t, before, 1.0)

	cfg.Profiles[ClassGeneral] = Profile{RequestsPerHour: 1000, ConcurrentLimit: 100, BurstAllowance: 0}
	c.UpdateConfig(cfg)

	for i := 0; i < 50; i++ {
		d := c.Admit(ctx, "9.9.9.9", ClassGeneral)
		require.True(t, d.Admitted)
		c.Release("9.9.9.9", ClassGeneral)
	}

	assert.GreaterOrEqual(t, c.CurrentReputation("9.9.9.9"), 0.6)
}

// A client making exactly `limit` requests is never rejected on count
// alone; the (limit+1)th request within the same hour is rejected.
func TestAdmit_SlidingWindowLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Profiles[ClassGeneral] = Profile{RequestsPerHour: 3, ConcurrentLimit: 100, BurstAllowance: 0}
	c := NewController(cfg, NewMemoryWindowStore(), nil, nil)
	defer c.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d := c.Admit(ctx, "5.5.5.5", ClassGeneral)
		require.True(t, d.Admitted, "request %d should be admitted", i)
		c.Release("5.5.5.5", ClassGeneral)
	}

	d := c.Admit(ctx, "5.5.5.5", ClassGeneral)
	assert.False(t, d.Admitted)
	assert.Equal(t, "hourly_limit_exceeded", d.Reason)
}

func TestAdmit_ConcurrencyCapIsSuspiciousNotBad(t *testing.T) {
	cfg := testConfig()
	cfg.Profiles[ClassGeneral] = Profile{RequestsPerHour: 1000, ConcurrentLimit: 1, BurstAllowance: 0}
	c := NewController(cfg, NewMemoryWindowStore(), nil, nil)
	defer c.Close()
	ctx := context.Background()

	d1 := c.Admit(ctx, "7.7.7.7", ClassGeneral)
	require.True(t, d1.Admitted)

	d2 := c.Admit(ctx, "7.7.7.7", ClassGeneral)
	assert.False(t, d2.Admitted)
	assert.Equal(t, "concurrency_limit_exceeded", d2.Reason)

	c.Release("7.7.7.7", ClassGeneral)
}
