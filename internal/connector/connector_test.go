package connector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/viiraa/healthsync/internal/analytics"
	"github.com/viiraa/healthsync/internal/client/vital"
	"github.com/viiraa/healthsync/internal/healthstore"
	"github.com/viiraa/healthsync/internal/vitaldevice"
)

type fakeUserAPI struct {
	mu          sync.Mutex
	createCalls int
	created     map[string]string // client user id -> remote user id
	createErr   error
	resolveErr  error
	tokenErr    error
}

var _ vital.UserService = (*fakeUserAPI)(nil)

func newFakeUserAPI() *fakeUserAPI {
	return &fakeUserAPI{created: make(map[string]string)}
}

func (f *fakeUserAPI) Create(_ context.Context, clientUserID string) (*vital.CreateUserResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++

	if f.createErr != nil {
		return nil, f.createErr
	}
	if remote, ok := f.created[clientUserID]; ok {
		return &vital.CreateUserResult{Outcome: vital.OutcomeAlreadyExists, UserID: remote}, nil
	}
	remote := "remote-" + clientUserID
	f.created[clientUserID] = remote
	return &vital.CreateUserResult{Outcome: vital.OutcomeCreated, UserID: remote}, nil
}

func (f *fakeUserAPI) Resolve(_ context.Context, clientUserID string) (*vital.UserRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	remote, ok := f.created[clientUserID]
	if !ok {
		return nil, &vital.APIError{StatusCode: 404, Message: "user not found"}
	}
	return &vital.UserRef{UserID: remote, ClientUserID: clientUserID}, nil
}

func (f *fakeUserAPI) SignInToken(_ context.Context, userID string) (*vital.SignInToken, error) {
	if f.tokenErr != nil {
		return nil, f.tokenErr
	}
	return &vital.SignInToken{UserID: userID, SignInToken: "token-" + userID}, nil
}

func (f *fakeUserAPI) CreateCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls
}

type fakeLinkAPI struct {
	mu        sync.Mutex
	connected map[string]bool // user id + provider
	err       error
}

var _ vital.LinkService = (*fakeLinkAPI)(nil)

func newFakeLinkAPI() *fakeLinkAPI {
	return &fakeLinkAPI{connected: make(map[string]bool)}
}

func (f *fakeLinkAPI) ConnectDemo(_ context.Context, userID string, provider vital.ProviderSlug) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	key := userID + "/" + string(provider)
	if f.connected[key] {
		return false, nil
	}
	f.connected[key] = true
	return true, nil
}

func (f *fakeLinkAPI) connections() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.connected)
}

type fakeTimeseriesAPI struct {
	readings []vital.GlucoseReading
	err      error
}

var _ vital.TimeseriesService = (*fakeTimeseriesAPI)(nil)

func (f *fakeTimeseriesAPI) Glucose(_ context.Context, _ string, _, _ time.Time) ([]vital.GlucoseReading, error) {
	return f.readings, f.err
}

// fakeDevice records sign-in state in memory and counts sync triggers.
type fakeDevice struct {
	mu        sync.Mutex
	userID    string
	signInErr error
	syncErr   error
	syncCalls int
}

var _ vitaldevice.Device = (*fakeDevice)(nil)

func (d *fakeDevice) SignedInUser(_ context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.userID == "" {
		return "", vitaldevice.ErrNotSignedIn
	}
	return d.userID, nil
}

func (d *fakeDevice) SignIn(_ context.Context, token string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.signInErr != nil {
		return "", d.signInErr
	}
	// Fake tokens are "token-<user id>".
	d.userID = token[len("token-"):]
	return d.userID, nil
}

func (d *fakeDevice) SignOut(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.userID = ""
	return nil
}

func (d *fakeDevice) SyncData(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.syncErr != nil {
		return d.syncErr
	}
	d.syncCalls++
	return nil
}

func (d *fakeDevice) SyncCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.syncCalls
}

type testHarness struct {
	connector *Connector
	user      *fakeUserAPI
	link      *fakeLinkAPI
	series    *fakeTimeseriesAPI
	device    *fakeDevice
	health    *healthstore.Memory
	recorder  *analytics.Recorder
}

func newHarness(t *testing.T, opts ...Option) *testHarness {
	t.Helper()

	h := &testHarness{
		user:     newFakeUserAPI(),
		link:     newFakeLinkAPI(),
		series:   &fakeTimeseriesAPI{},
		device:   &fakeDevice{},
		health:   healthstore.NewMemory(),
		recorder: analytics.NewRecorder(),
	}
	opts = append([]Option{
		WithAPI(h.user, h.link, h.series),
		WithSyncGracePeriod(time.Millisecond),
	}, opts...)
	h.connector = New(h.device, h.health, h.recorder, opts...)
	return h
}

func (h *testHarness) configureAndAuthorize(t *testing.T) {
	t.Helper()
	if err := h.connector.Configure("st_us_test"); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	if err := h.health.RequestAuthorization(context.Background(),
		healthstore.SampleGlucose, healthstore.SampleWeight, healthstore.SampleSteps,
		healthstore.SampleActiveEnergy, healthstore.SampleExerciseMinutes); err != nil {
		t.Fatalf("RequestAuthorization() error = %v", err)
	}
}

func eventByName(t *testing.T, recorder *analytics.Recorder, name string) analytics.RecordedEvent {
	t.Helper()
	for _, e := range recorder.Events() {
		if e.Name == name {
			return e
		}
	}
	t.Fatalf("event %q not recorded; got %v", name, recorder.EventNames())
	return analytics.RecordedEvent{}
}

func TestConnectRequiresConfigure(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	if err := h.connector.Connect(context.Background(), "local-1"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Connect() error = %v, want ErrNotConfigured", err)
	}
}

func TestConnectFreshUser(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.configureAndAuthorize(t)

	if err := h.connector.Connect(context.Background(), "local-1"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	status := h.connector.Status()
	if status.State != StateConnected {
		t.Errorf("State = %q, want connected", status.State)
	}
	if status.RemoteUserID != "remote-local-1" {
		t.Errorf("RemoteUserID = %q, want remote-local-1", status.RemoteUserID)
	}
	if got := h.link.connections(); got != 2 {
		t.Errorf("provider connections = %d, want 2", got)
	}

	event := eventByName(t, h.recorder, "junction_user_connected")
	if event.Properties["user_id"] != "local-1" {
		t.Errorf("user_id property = %v, want local-1", event.Properties["user_id"])
	}
	if event.Properties["junction_user_id"] != "remote-local-1" {
		t.Errorf("junction_user_id property = %v, want remote-local-1", event.Properties["junction_user_id"])
	}
}

func TestConnectIdempotent(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.configureAndAuthorize(t)
	ctx := context.Background()

	if err := h.connector.Connect(ctx, "local-1"); err != nil {
		t.Fatalf("first Connect() error = %v", err)
	}
	first := h.connector.Status().RemoteUserID

	if err := h.connector.Connect(ctx, "local-1"); err != nil {
		t.Fatalf("second Connect() error = %v", err)
	}
	second := h.connector.Status().RemoteUserID

	if first != second {
		t.Errorf("remote user ids differ: %q vs %q", first, second)
	}
	if len(h.user.created) != 1 {
		t.Errorf("remote users created = %d, want 1", len(h.user.created))
	}
}

func TestConnectReconnection(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.configureAndAuthorize(t)
	h.device.userID = "remote-existing"

	if err := h.connector.Connect(context.Background(), "local-1"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	// The persisted device session skips user creation and token
	// exchange entirely.
	if h.user.CreateCalls() != 0 {
		t.Errorf("Create calls = %d, want 0 on reconnection", h.user.CreateCalls())
	}
	if h.connector.Status().RemoteUserID != "remote-existing" {
		t.Errorf("RemoteUserID = %q, want remote-existing", h.connector.Status().RemoteUserID)
	}
	eventByName(t, h.recorder, "junction_user_reconnected")
	for _, name := range h.recorder.EventNames() {
		if name == "junction_user_connected" {
			t.Error("junction_user_connected recorded for a reconnection")
		}
	}
}

func TestConnectMalformedCreateFallsBackToResolve(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.configureAndAuthorize(t)
	h.user.created["local-1"] = "remote-resolved"
	h.user.createErr = &vital.APIError{StatusCode: 400, Message: "unexpected error shape"}

	if err := h.connector.Connect(context.Background(), "local-1"); err != nil {
		t.Fatalf("Connect() error = %v, want resolve fallback to succeed", err)
	}
	if got := h.connector.Status().RemoteUserID; got != "remote-resolved" {
		t.Errorf("RemoteUserID = %q, want remote-resolved", got)
	}
}

func TestConnectCreateServerError(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.configureAndAuthorize(t)
	h.user.createErr = &vital.APIError{StatusCode: 500, Message: "internal"}

	err := h.connector.Connect(context.Background(), "local-1")

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("Connect() error = %v, want *NetworkError", err)
	}
	if h.connector.Status().State != StateDisconnected {
		t.Errorf("State = %q, want disconnected", h.connector.Status().State)
	}
}

func TestConnectInvalidAPIKeyClassified(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.configureAndAuthorize(t)
	h.user.createErr = &vital.APIError{StatusCode: 401, Message: "bad key"}

	if err := h.connector.Connect(context.Background(), "local-1"); !errors.Is(err, ErrInvalidAPIKey) {
		t.Errorf("Connect() error = %v, want ErrInvalidAPIKey", err)
	}
}

func TestConnectTokenFailureKeepsRemoteUser(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.configureAndAuthorize(t)
	h.user.tokenErr = &vital.APIError{StatusCode: 500, Message: "token service down"}
	ctx := context.Background()

	if err := h.connector.Connect(ctx, "local-1"); err == nil {
		t.Fatal("Connect() succeeded, want sign-in token failure")
	}

	status := h.connector.Status()
	if status.State == StateConnected {
		t.Error("State = connected despite token failure")
	}
	if status.Sync.Status != SyncFailed {
		t.Errorf("Sync.Status = %q, want failed", status.Sync.Status)
	}
	var syncErr *SyncError
	if !errors.As(status.Sync.LastError, &syncErr) {
		t.Errorf("Sync.LastError = %v, want *SyncError", status.Sync.LastError)
	}

	// Retry must resolve the same remote user, not create a duplicate.
	h.user.tokenErr = nil
	if err := h.connector.Connect(ctx, "local-1"); err != nil {
		t.Fatalf("retry Connect() error = %v", err)
	}
	if got := h.connector.Status().RemoteUserID; got != "remote-local-1" {
		t.Errorf("RemoteUserID after retry = %q, want remote-local-1", got)
	}
	if len(h.user.created) != 1 {
		t.Errorf("remote users created = %d, want 1 after retry", len(h.user.created))
	}
}

func TestConnectProviderFailureNonFatal(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.configureAndAuthorize(t)
	h.link.err = &vital.APIError{StatusCode: 500, Message: "link service down"}

	if err := h.connector.Connect(context.Background(), "local-1"); err != nil {
		t.Fatalf("Connect() error = %v, provider failures must not fail connect", err)
	}
	if h.connector.Status().State != StateConnected {
		t.Errorf("State = %q, want connected", h.connector.Status().State)
	}
}

func TestConnectDuplicateProviderConnection(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.configureAndAuthorize(t)
	ctx := context.Background()

	if err := h.connector.Connect(ctx, "local-1"); err != nil {
		t.Fatalf("first Connect() error = %v", err)
	}
	if err := h.connector.Connect(ctx, "local-1"); err != nil {
		t.Fatalf("second Connect() error = %v, duplicate connections must resolve as connected", err)
	}
	if got := h.link.connections(); got != 2 {
		t.Errorf("provider connections = %d, want 2 (no duplicates)", got)
	}
}

func TestConnectWithoutPermissionsPending(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	if err := h.connector.Configure("st_us_test"); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	if err := h.connector.Connect(context.Background(), "local-1"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if got := h.connector.Status().State; got != StatePermissionsPending {
		t.Errorf("State = %q, want permissions_pending", got)
	}
}

func TestRequestPermissionsCompletesConnection(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	if err := h.connector.Configure("st_us_test"); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	ctx := context.Background()

	if err := h.connector.Connect(ctx, "local-1"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := h.connector.RequestPermissions(ctx); err != nil {
		t.Fatalf("RequestPermissions() error = %v", err)
	}

	if got := h.connector.Status().State; got != StateConnected {
		t.Errorf("State = %q, want connected after grant", got)
	}
	eventByName(t, h.recorder, "junction_healthkit_authorized")
}

func TestSyncNowRecordsSuccess(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.configureAndAuthorize(t)
	ctx := context.Background()

	if err := h.connector.Connect(ctx, "local-1"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := h.connector.SyncNow(ctx); err != nil {
		t.Fatalf("SyncNow() error = %v", err)
	}

	status := h.connector.Status()
	if status.Sync.Status != SyncSuccess {
		t.Errorf("Sync.Status = %q, want success", status.Sync.Status)
	}
	if status.Sync.LastSyncAt.IsZero() {
		t.Error("LastSyncAt not recorded")
	}
	eventByName(t, h.recorder, "junction_sync_success")
}

func TestSyncNowFailureRecorded(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.configureAndAuthorize(t)
	ctx := context.Background()

	if err := h.connector.Connect(ctx, "local-1"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	h.device.syncErr = errors.New("device unreachable")

	err := h.connector.SyncNow(ctx)
	var syncErr *SyncError
	if !errors.As(err, &syncErr) {
		t.Fatalf("SyncNow() error = %v, want *SyncError", err)
	}
	if h.connector.Status().Sync.Status != SyncFailed {
		t.Errorf("Sync.Status = %q, want failed", h.connector.Status().Sync.Status)
	}
	eventByName(t, h.recorder, "junction_sync_failed")

	// A later attempt is unaffected by the recorded failure.
	h.device.syncErr = nil
	if err := h.connector.SyncNow(ctx); err != nil {
		t.Errorf("SyncNow() after recovery error = %v", err)
	}
}

func TestSyncNowCancelledDuringGraceResetsStatus(t *testing.T) {
	t.Parallel()

	h := newHarness(t, WithSyncGracePeriod(time.Minute))
	h.configureAndAuthorize(t)

	if err := h.connector.Connect(context.Background(), "local-1"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := h.connector.SyncNow(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("SyncNow() error = %v, want context.Canceled", err)
	}

	if got := h.connector.Status().Sync.Status; got != SyncIdle {
		t.Errorf("Sync.Status = %q after cancellation, want idle", got)
	}
}

func TestSyncNowRequiresConnection(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	if err := h.connector.Configure("st_us_test"); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	if err := h.connector.SyncNow(context.Background()); !errors.Is(err, ErrUserNotConnected) {
		t.Errorf("SyncNow() error = %v, want ErrUserNotConnected", err)
	}
}

func TestAutomaticSyncSingleton(t *testing.T) {
	t.Parallel()

	h := newHarness(t, WithSyncInterval(20*time.Millisecond))
	h.configureAndAuthorize(t)
	ctx := context.Background()

	if err := h.connector.Connect(ctx, "local-1"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	for range 5 {
		h.connector.StartAutomaticSync()
	}
	time.Sleep(110 * time.Millisecond)
	h.connector.StopAutomaticSync()

	// One immediate sync plus roughly five ticks. Five schedules would
	// have produced several times that.
	calls := h.device.SyncCalls()
	if calls < 2 || calls > 8 {
		t.Errorf("sync calls = %d, want one schedule's worth (2..8)", calls)
	}
}

func TestStopAutomaticSyncIdempotent(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.configureAndAuthorize(t)

	h.connector.StopAutomaticSync()
	h.connector.StopAutomaticSync()
}

func TestDisconnectClearsState(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.configureAndAuthorize(t)
	ctx := context.Background()

	if err := h.connector.Connect(ctx, "local-1"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	h.connector.Disconnect(ctx)
	h.connector.Disconnect(ctx)

	status := h.connector.Status()
	if status.State != StateDisconnected {
		t.Errorf("State = %q, want disconnected", status.State)
	}
	if status.RemoteUserID != "" {
		t.Errorf("RemoteUserID = %q, want cleared", status.RemoteUserID)
	}
	if status.Sync.Status != SyncIdle {
		t.Errorf("Sync.Status = %q, want idle", status.Sync.Status)
	}
	if _, err := h.device.SignedInUser(ctx); !errors.Is(err, vitaldevice.ErrNotSignedIn) {
		t.Errorf("device still signed in after disconnect: %v", err)
	}
	eventByName(t, h.recorder, "junction_user_disconnected")
}

func TestVerifySync(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.configureAndAuthorize(t)
	ctx := context.Background()

	if err := h.connector.Connect(ctx, "local-1"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	verified, err := h.connector.VerifySync(ctx)
	if err != nil {
		t.Fatalf("VerifySync() error = %v", err)
	}
	if verified {
		t.Error("VerifySync() = true with no remote readings")
	}

	h.series.readings = []vital.GlucoseReading{{Value: 102, Timestamp: time.Now()}}
	verified, err = h.connector.VerifySync(ctx)
	if err != nil {
		t.Fatalf("VerifySync() error = %v", err)
	}
	if !verified {
		t.Error("VerifySync() = false with remote readings present")
	}
}

func TestRunDiagnostic(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.configureAndAuthorize(t)
	ctx := context.Background()

	if err := h.connector.Connect(ctx, "local-1"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := h.health.InsertGlucose(ctx, []healthstore.GlucoseReading{
		{Timestamp: time.Now(), Value: 98},
	}); err != nil {
		t.Fatalf("InsertGlucose() error = %v", err)
	}

	report := h.connector.RunDiagnostic(ctx)
	if !report.DeviceSignedIn {
		t.Error("DeviceSignedIn = false")
	}
	if !report.LocalAuthorized {
		t.Error("LocalAuthorized = false")
	}
	if report.LocalReadingCount != 1 {
		t.Errorf("LocalReadingCount = %d, want 1", report.LocalReadingCount)
	}
	if report.RemoteVerified {
		t.Error("RemoteVerified = true with empty remote store")
	}
	if len(report.Remediation) == 0 {
		t.Error("Remediation empty, want re-check hint for absent remote data")
	}
}

func TestConfigureRejectsEmptyKey(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	if err := h.connector.Configure(""); !errors.Is(err, ErrInvalidAPIKey) {
		t.Errorf("Configure(\"\") error = %v, want ErrInvalidAPIKey", err)
	}
}

func TestConfigureDerivesEnvironment(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	if err := h.connector.Configure("sk_eu_live"); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	if got := h.connector.Status().Environment; got != vital.EnvironmentProductionEU {
		t.Errorf("Environment = %q, want production-eu", got)
	}
	eventByName(t, h.recorder, "junction_configured")
}
