package realtime

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
)

func newTestHub(t *testing.T, filtering bool) *Hub {
	t.Helper()
	opts := DefaultOptions()
	opts.RoleFiltering = filtering
	return NewHub(zap.NewNop(), nil, opts)
}

func connect(h *Hub, role Role) *Client {
	c := newClient(h, nil, role, 64)
	h.Register(c)
	return c
}

// drain returns every frame queued to c without blocking.
func drain(t *testing.T, c *Client) []Envelope {
	t.Helper()
	var out []Envelope
	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				return out
			}
			var env Envelope
			if err := json.Unmarshal(frame, &env); err != nil {
				t.Fatalf("bad frame %s: %v", frame, err)
			}
			out = append(out, env)
		default:
			return out
		}
	}
}

func only(envs []Envelope, event string) []Envelope {
	var out []Envelope
	for _, e := range envs {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func last(t *testing.T, envs []Envelope, event string) Envelope {
	t.Helper()
	m := only(envs, event)
	if len(m) == 0 {
		t.Fatalf("no %s frame among %d frames", event, len(envs))
	}
	return m[len(m)-1]
}

func decode[T any](t *testing.T, env Envelope) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("decode %s data %s: %v", env.Event, env.Data, err)
	}
	return v
}

func frame(event string, data any) []byte {
	b, err := Encode(event, data)
	if err != nil {
		panic(err)
	}
	return b
}

func TestRegisterPushesCurrentSnapshotToNewClientOnly(t *testing.T) {
	h := newTestHub(t, true)
	first := connect(h, RoleDriver)
	drain(t, first)

	h.UpdateSnapshot(Snapshot{{ID: "3", Occupied: true}})
	drain(t, first)

	second := connect(h, RoleDriver)
	envs := drain(t, second)
	if len(envs) != 1 || envs[0].Event != EventOccupancySnapshot {
		t.Fatalf("new client frames = %+v", envs)
	}
	snap := decode[Snapshot](t, envs[0])
	if len(snap) != 1 || snap[0] != (SpotStatus{ID: "3", Occupied: true}) {
		t.Fatalf("snapshot = %+v", snap)
	}
	if got := drain(t, first); len(got) != 0 {
		t.Fatalf("existing client received %d frames on another client's connect", len(got))
	}
}

func TestEmptySnapshotThenUpdateScenario(t *testing.T) {
	h := newTestHub(t, true)
	c := connect(h, RoleDriver)

	envs := drain(t, c)
	if string(envs[0].Data) != "[]" {
		t.Fatalf("initial snapshot = %s, want []", envs[0].Data)
	}

	h.UpdateSnapshot(Snapshot{{ID: "5", Occupied: false}})
	envs = drain(t, c)
	if len(envs) != 1 || envs[0].Event != EventOccupancySnapshot {
		t.Fatalf("frames = %+v", envs)
	}
	snap := decode[Snapshot](t, envs[0])
	if len(snap) != 1 || snap[0] != (SpotStatus{ID: "5"}) {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestSnapshotReplacementIsTotal(t *testing.T) {
	h := newTestHub(t, true)
	h.UpdateSnapshot(Snapshot{{ID: "1", Occupied: true}})
	h.UpdateSnapshot(Snapshot{{ID: "2", Occupied: true}})

	cur := h.CurrentSnapshot()
	if len(cur) != 1 || cur[0].ID != "2" {
		t.Fatalf("current = %+v", cur)
	}
}

func TestRegistryBroadcastAfterTwoLogins(t *testing.T) {
	h := newTestHub(t, true)
	guard := connect(h, RoleGuard)
	ana := connect(h, RoleDriver)
	luis := connect(h, RoleDriver)
	drain(t, guard)

	h.Login(ana, "Ana", nil, nil)
	h.Login(luis, "Luis", strp("XYZ-123"), strp("14"))

	reg := decode[map[string]Identity](t, last(t, drain(t, guard), EventRegistrySnapshot))
	if len(reg) != 2 {
		t.Fatalf("registry = %+v, want 2 entries", reg)
	}
	if _, ok := reg["Ana"]; !ok {
		t.Fatal("Ana missing")
	}
	if got := reg["Luis"]; got.Plate != "XYZ-123" || got.Spot != "14" || got.ConnectionID != luis.ID() {
		t.Fatalf("Luis = %+v", got)
	}
}

func TestDisconnectRemovesIdentityAndRebroadcasts(t *testing.T) {
	h := newTestHub(t, true)
	guard := connect(h, RoleGuard)
	a := connect(h, RoleDriver)
	h.Login(a, "A", nil, nil)
	drain(t, guard)

	h.Unregister(a)

	if _, ok := h.Lookup("A"); ok {
		t.Fatal("A still registered after disconnect")
	}
	reg := decode[map[string]Identity](t, last(t, drain(t, guard), EventRegistrySnapshot))
	if _, ok := reg["A"]; ok {
		t.Fatalf("registry broadcast still lists A: %+v", reg)
	}
	drain(t, a)
	if _, ok := <-a.send; ok {
		t.Fatal("send channel of a disconnected client is still open")
	}
	// second unregister is a no-op
	h.Unregister(a)
}

func TestDisconnectOfAnonymousStillBroadcasts(t *testing.T) {
	h := newTestHub(t, true)
	guard := connect(h, RoleGuard)
	anon := connect(h, RoleDriver)
	drain(t, guard)

	h.Unregister(anon)
	if len(only(drain(t, guard), EventRegistrySnapshot)) != 1 {
		t.Fatal("expected one registry broadcast")
	}
}

func TestCloseDetachesEveryClient(t *testing.T) {
	h := newTestHub(t, true)
	guard := connect(h, RoleGuard)
	a := connect(h, RoleDriver)
	h.Login(a, "A", nil, nil)

	h.Close()

	if h.ClientCount() != 0 || len(h.Presence()) != 0 {
		t.Fatalf("clients=%d presence=%v", h.ClientCount(), h.Presence())
	}
	for _, c := range []*Client{guard, a} {
		drain(t, c)
		if _, ok := <-c.send; ok {
			t.Fatal("send channel still open after Close")
		}
	}
	// a late unregister from the read pump is a no-op
	h.Unregister(a)
}

func TestGuardToDriverIsUnicast(t *testing.T) {
	h := newTestHub(t, true)
	a := connect(h, RoleDriver)
	b := connect(h, RoleDriver)
	guard := connect(h, RoleGuard)
	h.Login(a, "A", nil, nil)
	h.Login(b, "B", nil, nil)
	drain(t, a)
	drain(t, b)
	drain(t, guard)

	if res := h.GuardToDriver("A", "msg"); res != Delivered {
		t.Fatalf("result = %v", res)
	}

	msgs := only(drain(t, a), EventChatDelivered)
	if len(msgs) != 1 {
		t.Fatalf("A received %d chat frames", len(msgs))
	}
	got := decode[ChatMessage](t, msgs[0])
	want := ChatMessage{SenderName: GuardDisplayName, Body: "msg", RecipientName: "A"}
	if got != want {
		t.Fatalf("chat = %+v, want %+v", got, want)
	}
	if n := len(drain(t, b)); n != 0 {
		t.Fatalf("B received %d frames", n)
	}
	if n := len(drain(t, guard)); n != 0 {
		t.Fatalf("guard received %d frames", n)
	}
}

func TestGuardToAbsentDriver(t *testing.T) {
	h := newTestHub(t, true)
	a := connect(h, RoleDriver)
	h.Login(a, "A", nil, nil)
	h.Unregister(a)

	if res := h.GuardToDriver("A", "hola"); res != TargetNotConnected {
		t.Fatalf("result = %v, want TargetNotConnected", res)
	}
	if res := h.GuardToDriver("nobody", "hola"); res != TargetNotConnected {
		t.Fatalf("result = %v, want TargetNotConnected", res)
	}
}

func TestChatFromGuardFrameReportsDeliveryFailure(t *testing.T) {
	h := newTestHub(t, true)
	guard := connect(h, RoleGuard)
	drain(t, guard)

	h.HandleFrame(guard, frame(EventChatFromGuard, ChatPayload{Name: "Ghost", Body: "hola"}))

	envs := drain(t, guard)
	if len(envs) != 1 || envs[0].Event != EventDeliveryFailed {
		t.Fatalf("frames = %+v", envs)
	}
	f := decode[DeliveryFailure](t, envs[0])
	if f.RecipientName != "Ghost" || f.Reason != "target_not_connected" {
		t.Fatalf("failure = %+v", f)
	}
}

func TestDuplicateLoginEvictsPreviousConnection(t *testing.T) {
	h := newTestHub(t, true)
	guard := connect(h, RoleGuard)
	old := connect(h, RoleDriver)
	fresh := connect(h, RoleDriver)
	h.Login(old, "Ana", strp("AAA"), strp("3"))
	drain(t, old)
	drain(t, guard)

	h.Login(fresh, "Ana", nil, nil)

	ev := only(drain(t, old), EventIdentityEvicted)
	if len(ev) != 1 || decode[Eviction](t, ev[0]).Name != "Ana" {
		t.Fatalf("evicted connection frames = %+v", ev)
	}
	id, ok := h.Lookup("Ana")
	if !ok || id.ConnectionID != fresh.ID() || id.Plate != "AAA" || id.Spot != "3" {
		t.Fatalf("identity = %+v", id)
	}

	// the orphaned connection closing must not drop Ana
	h.Unregister(old)
	if _, ok := h.Lookup("Ana"); !ok {
		t.Fatal("closing the evicted connection removed the new binding")
	}
	reg := decode[map[string]Identity](t, last(t, drain(t, guard), EventRegistrySnapshot))
	if reg["Ana"].ConnectionID != fresh.ID() {
		t.Fatalf("registry = %+v", reg)
	}
}

func TestRoleFilteredAudiences(t *testing.T) {
	h := newTestHub(t, true)
	guard := connect(h, RoleGuard)
	driver := connect(h, RoleDriver)
	other := connect(h, RoleDriver)
	h.Login(driver, "Ana", nil, nil)
	drain(t, guard)
	drain(t, driver)
	drain(t, other)

	h.DriverToGuard("Ana", "llegue")
	h.DriverTyping("Ana", true)
	h.NotifyReservation(ReservationEvent{DriverName: "Ana", PlazaName: "Plaza Rio", SpotLabel: "12"})
	h.GuardTyping(true)

	g := drain(t, guard)
	if len(g) != 3 {
		t.Fatalf("guard frames = %+v", g)
	}
	if msg := decode[ChatMessage](t, g[0]); msg.SenderName != "Ana" || msg.Body != "llegue" || msg.RecipientName != "" {
		t.Fatalf("chat = %+v", msg)
	}
	if ts := decode[TypingState](t, g[1]); ts.Name != "Ana" || !ts.IsTyping {
		t.Fatalf("typing = %+v", ts)
	}
	if ev := decode[ReservationEvent](t, g[2]); ev.PlazaName != "Plaza Rio" || ev.SpotLabel != "12" {
		t.Fatalf("reservation = %+v", ev)
	}

	for _, c := range []*Client{driver, other} {
		d := drain(t, c)
		if len(d) != 1 || d[0].Event != EventTypingStateChanged {
			t.Fatalf("driver frames = %+v", d)
		}
		if ts := decode[TypingState](t, d[0]); ts.Name != "" || !ts.IsTyping {
			t.Fatalf("guard typing = %+v", ts)
		}
	}
}

func TestRegistryAudienceFollowsRoleFiltering(t *testing.T) {
	for _, filtering := range []bool{true, false} {
		h := newTestHub(t, filtering)
		guard := connect(h, RoleGuard)
		ana := connect(h, RoleDriver)
		luis := connect(h, RoleDriver)
		plate := "ABC-123"
		h.Login(ana, "Ana", &plate, nil)

		if got := only(drain(t, guard), EventRegistrySnapshot); len(got) != 1 {
			t.Fatalf("filtering=%v: guard registry frames = %d", filtering, len(got))
		}
		for _, c := range []*Client{ana, luis} {
			got := only(drain(t, c), EventRegistrySnapshot)
			want := 0
			if !filtering {
				want = 1
			}
			if len(got) != want {
				t.Fatalf("filtering=%v: driver registry frames = %d, want %d", filtering, len(got), want)
			}
		}
	}
}

func TestBroadcastToAllWhenRoleFilteringDisabled(t *testing.T) {
	h := newTestHub(t, false)
	d1 := connect(h, RoleDriver)
	d2 := connect(h, RoleDriver)
	drain(t, d1)
	drain(t, d2)

	h.Login(d1, "Ana", nil, nil)
	h.DriverToGuard("Ana", "hola")
	h.NotifyReservation(ReservationEvent{DriverName: "Ana", PlazaName: "Landmark", SpotLabel: "1"})

	got := drain(t, d2)
	want := []string{EventRegistrySnapshot, EventChatDelivered, EventReservationBroadcast}
	if len(got) != len(want) {
		t.Fatalf("frames = %+v", got)
	}
	for i, e := range want {
		if got[i].Event != e {
			t.Fatalf("frame %d = %s, want %s", i, got[i].Event, e)
		}
	}

	// a driver connection may send guard events when roles are not enforced
	h.HandleFrame(d2, frame(EventChatFromGuard, ChatPayload{Name: "Ana", Body: "ok"}))
	chat := only(drain(t, d1), EventChatDelivered)
	if len(chat) != 2 {
		t.Fatalf("Ana chat frames = %d", len(chat))
	}
}

func TestHandleFrameDispatch(t *testing.T) {
	h := newTestHub(t, true)
	guard := connect(h, RoleGuard)
	driver := connect(h, RoleDriver)
	drain(t, guard)
	drain(t, driver)

	h.HandleFrame(driver, []byte(`{"event":"login","data":{"name":" Ana ","plate":"ABC-1","spot":"7"}}`))
	h.HandleFrame(driver, []byte(`{"event":"chatFromDriver","data":{"name":"Ana","body":"hola"}}`))
	h.HandleFrame(driver, []byte(`{"event":"driverTyping","data":{"name":"Ana","isTyping":false}}`))
	h.HandleFrame(driver, []byte(`{"event":"newReservation","data":{"name":"Ana","plaza":"Plaza Peninsula","spot":"7","model":"Versa"}}`))
	h.HandleFrame(guard, []byte(`{"event":"guardTyping","data":true}`))
	h.HandleFrame(guard, []byte(`{"event":"chatFromGuard","data":{"name":"Ana","body":"bienvenida"}}`))

	id, ok := h.Lookup("Ana")
	if !ok || id.Plate != "ABC-1" || id.Spot != "7" {
		t.Fatalf("identity = %+v, %v", id, ok)
	}

	g := drain(t, guard)
	wantGuard := []string{EventRegistrySnapshot, EventChatDelivered, EventTypingStateChanged, EventReservationBroadcast}
	if len(g) != len(wantGuard) {
		t.Fatalf("guard frames = %+v", g)
	}
	for i, e := range wantGuard {
		if g[i].Event != e {
			t.Fatalf("guard frame %d = %s, want %s", i, g[i].Event, e)
		}
	}
	if ev := decode[ReservationEvent](t, g[3]); ev.VehicleModel != "Versa" {
		t.Fatalf("reservation = %+v", ev)
	}

	d := drain(t, driver)
	if len(d) != 2 || d[0].Event != EventTypingStateChanged || d[1].Event != EventChatDelivered {
		t.Fatalf("driver frames = %+v", d)
	}
}

func TestMalformedFramesAreDroppedAndReported(t *testing.T) {
	tests := []struct {
		name  string
		role  Role
		frame string
		code  string
		event string
	}{
		{name: "not json", role: RoleDriver, frame: `{`, code: "malformed_payload"},
		{name: "no event", role: RoleDriver, frame: `{"data":{}}`, code: "malformed_payload"},
		{name: "login without name", role: RoleDriver, frame: `{"event":"login","data":{"plate":"X"}}`, code: "malformed_payload", event: EventLogin},
		{name: "login no data", role: RoleDriver, frame: `{"event":"login"}`, code: "malformed_payload", event: EventLogin},
		{name: "chat without body", role: RoleDriver, frame: `{"event":"chatFromDriver","data":{"name":"Ana"}}`, code: "malformed_payload", event: EventChatFromDriver},
		{name: "typing without flag", role: RoleDriver, frame: `{"event":"driverTyping","data":{"name":"Ana"}}`, code: "malformed_payload", event: EventDriverTyping},
		{name: "guard typing null", role: RoleGuard, frame: `{"event":"guardTyping","data":null}`, code: "malformed_payload", event: EventGuardTyping},
		{name: "reservation without spot", role: RoleDriver, frame: `{"event":"newReservation","data":{"name":"Ana","plaza":"Landmark"}}`, code: "malformed_payload", event: EventNewReservation},
		{name: "unknown event", role: RoleDriver, frame: `{"event":"teleport","data":{}}`, code: "unknown_event", event: "teleport"},
		{name: "driver sending guard chat", role: RoleDriver, frame: `{"event":"chatFromGuard","data":{"name":"Ana","body":"x"}}`, code: "forbidden", event: EventChatFromGuard},
		{name: "guard logging in", role: RoleGuard, frame: `{"event":"login","data":{"name":"Ana"}}`, code: "forbidden", event: EventLogin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHub(t, true)
			sender := connect(h, tt.role)
			watcherRole := RoleGuard
			if tt.role == RoleGuard {
				watcherRole = RoleDriver
			}
			watcher := connect(h, watcherRole)
			drain(t, sender)
			drain(t, watcher)

			h.HandleFrame(sender, []byte(tt.frame))

			envs := drain(t, sender)
			if len(envs) != 1 || envs[0].Event != EventError {
				t.Fatalf("sender frames = %+v", envs)
			}
			pe := decode[ProtocolError](t, envs[0])
			if pe.Code != tt.code || pe.Event != tt.event {
				t.Fatalf("error = %+v, want code=%s event=%s", pe, tt.code, tt.event)
			}
			if n := len(drain(t, watcher)); n != 0 {
				t.Fatalf("rejected frame produced %d broadcasts", n)
			}
			if len(h.Presence()) != 0 {
				t.Fatal("rejected frame mutated the registry")
			}
		})
	}
}

func TestSlowClientIsClosed(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	h := NewHub(zap.NewNop(), m, DefaultOptions())

	guard := connect(h, RoleGuard)
	slow := newClient(h, nil, RoleDriver, 1)
	h.Register(slow) // snapshot fills the single slot
	h.Login(slow, "Lento", nil, nil)
	drain(t, guard)

	h.UpdateSnapshot(Snapshot{{ID: "1", Occupied: true}})

	if h.ClientCount() != 1 {
		t.Fatalf("clients = %d, want 1", h.ClientCount())
	}
	if _, ok := h.Lookup("Lento"); ok {
		t.Fatal("slow client's identity survived")
	}
	envs := drain(t, guard)
	if len(only(envs, EventRegistrySnapshot)) != 1 || len(only(envs, EventOccupancySnapshot)) != 1 {
		t.Fatalf("guard frames = %+v", envs)
	}
	if got := testutil.ToFloat64(m.slowEvictions); got != 1 {
		t.Fatalf("slow evictions = %v", got)
	}
	if got := testutil.ToFloat64(m.clients.WithLabelValues("driver")); got != 0 {
		t.Fatalf("driver connections gauge = %v", got)
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	h := NewHub(zap.NewNop(), m, DefaultOptions())

	guard := connect(h, RoleGuard)
	driver := connect(h, RoleDriver)
	h.HandleFrame(driver, frame(EventLogin, LoginPayload{Name: "Ana"}))
	h.HandleFrame(driver, []byte(`{"event":"login","data":{}}`))
	h.HandleFrame(guard, frame(EventChatFromGuard, ChatPayload{Name: "Nadie", Body: "?"}))
	h.UpdateSnapshot(Snapshot{{ID: "1", Occupied: true}, {ID: "2"}, {ID: "3", Occupied: true}})

	checks := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"guards", m.clients.WithLabelValues("guard"), 1},
		{"drivers", m.clients.WithLabelValues("driver"), 1},
		{"identities", m.identities, 1},
		{"login ok", m.events.WithLabelValues(EventLogin, "ok"), 1},
		{"login malformed", m.events.WithLabelValues(EventLogin, "malformed_payload"), 1},
		{"undelivered", m.undelivered, 1},
		{"snapshots", m.snapshots, 1},
		{"occupied", m.occupied, 2},
	}
	for _, c := range checks {
		if got := testutil.ToFloat64(c.c); got != c.want {
			t.Errorf("%s = %v, want %v", c.name, got, c.want)
		}
	}
	if n, err := testutil.GatherAndCount(reg, "smartpark_realtime_frames_queued_total"); err != nil || n != 1 {
		t.Errorf("frames_queued_total series = %d, %v", n, err)
	}
}

func TestConcurrentLoginsAndDisconnects(t *testing.T) {
	h := newTestHub(t, true)
	guard := newClient(h, nil, RoleGuard, 1<<16)
	h.Register(guard)

	const n = 50
	clients := make([]*Client, n)
	for i := range clients {
		clients[i] = newClient(h, nil, RoleDriver, 1<<12)
		h.Register(clients[i])
	}

	var wg sync.WaitGroup
	for i, c := range clients {
		wg.Add(1)
		go func(i int, c *Client) {
			defer wg.Done()
			name := fmt.Sprintf("driver-%d", i%10)
			h.Login(c, name, strp(fmt.Sprint(i)), nil)
			h.DriverToGuard(name, "hola")
			if i%2 == 0 {
				h.Unregister(c)
			}
		}(i, c)
	}
	wg.Wait()

	pres := h.Presence()
	if len(pres) > 10 {
		t.Fatalf("registry holds %d names, want at most 10", len(pres))
	}
	for name, id := range pres {
		if id.Name != name {
			t.Fatalf("entry %q has name %q", name, id.Name)
		}
	}
}

func TestParseRole(t *testing.T) {
	for in, want := range map[string]Role{"": RoleDriver, "driver": RoleDriver, "GUARD": RoleGuard, "guardia": RoleGuard} {
		if got, ok := ParseRole(in); !ok || got != want {
			t.Errorf("ParseRole(%q) = %q, %v", in, got, ok)
		}
	}
	if _, ok := ParseRole("admin"); ok {
		t.Error("ParseRole(admin) accepted")
	}
}
