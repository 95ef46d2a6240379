package eve_test

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ravi-parthasarathy/evegen/pkg/runtime/eve"
)

// ─── test instances ───────────────────────────────────────────────────────────

type numbers struct {
	id, n, next int
	Out         *eve.OutPort[int]
}

func (s *numbers) InstanceID() int { return s.id }
func (s *numbers) Kind() string    { return "numbers" }
func (s *numbers) Release()        { s.Out.Close() }
func (s *numbers) Next() bool {
	if s.next >= s.n {
		return false
	}
	s.Out.Send(s.next)
	s.next++
	return true
}

type double struct {
	id  int
	In  *eve.Receiver[int]
	Out *eve.OutPort[int]
}

func (d *double) InstanceID() int { return d.id }
func (d *double) Kind() string    { return "double" }
func (d *double) Release()        { d.In.Close(); d.Out.Close() }
func (d *double) Poll() eve.PollResult {
	return eve.Poll(d.In, func(v int) { d.Out.Send(v * 2) })
}

type collector struct {
	id    int
	kind  string
	In    *eve.Receiver[int]
	got   []int
	polls int
}

func newCollector(kind string, id int) *collector {
	return &collector{id: id, kind: kind, In: eve.NewReceiver[int]()}
}

func (c *collector) InstanceID() int { return c.id }
func (c *collector) Kind() string    { return c.kind }
func (c *collector) Release()        { c.In.Close() }
func (c *collector) Poll() eve.PollResult {
	c.polls++
	return eve.Poll(c.In, func(v int) { c.got = append(c.got, v) })
}

// connect adds one sender group to port with a sender per target.
func connect(port *eve.OutPort[int], targets ...*collector) {
	g := port.Group()
	for _, t := range targets {
		g.Add(t.In.Sender())
	}
}

// ─── channel ──────────────────────────────────────────────────────────────────

func TestChannel_States(t *testing.T) {
	rx := eve.NewReceiver[string]()
	a, b := rx.Sender(), rx.Sender()

	_, status := rx.TryRecv()
	assert.Equal(t, eve.RecvEmpty, status)

	require.NoError(t, a.Send("x"))
	require.NoError(t, b.Send("y"))
	a.Close()
	a.Close()

	v, status := rx.TryRecv()
	assert.Equal(t, eve.RecvOK, status)
	assert.Equal(t, "x", v)

	b.Close()
	v, status = rx.TryRecv()
	assert.Equal(t, eve.RecvOK, status, "queued items drain after every sender closes")
	assert.Equal(t, "y", v)

	_, status = rx.TryRecv()
	assert.Equal(t, eve.RecvClosed, status)
}

func TestChannel_ReceiverGone(t *testing.T) {
	rx := eve.NewReceiver[int]()
	tx := rx.Sender()
	rx.Close()
	assert.ErrorIs(t, tx.Send(1), eve.ErrDisconnected)
}

// ─── scheduling ───────────────────────────────────────────────────────────────

func TestThread_SourceToSinkDeliversAllInOrder(t *testing.T) {
	const n = 250
	reg := eve.NewRegistry("numbers", "sink")
	src := eve.Register(reg, &numbers{n: n, Out: eve.NewOutPort[int]()})
	sink := eve.Register(reg, newCollector("sink", 0))
	connect(src.Out, sink)

	threads := eve.Partition(1, reg)
	require.Len(t, threads, 1)
	threads[0].Run()

	want := make([]int, n)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, sink.got)
	assert.Zero(t, reg.Len())
	assert.Empty(t, threads[0].Sources())
	assert.Empty(t, threads[0].Normals())
}

func TestThread_ClosureCascadesThroughChain(t *testing.T) {
	reg := eve.NewRegistry("numbers", "double", "sink")
	src := eve.Register(reg, &numbers{n: 5, Out: eve.NewOutPort[int]()})
	mid := eve.Register(reg, &double{In: eve.NewReceiver[int](), Out: eve.NewOutPort[int]()})
	sink := eve.Register(reg, newCollector("sink", 0))
	src.Out.Group().Add(mid.In.Sender())
	connect(mid.Out, sink)

	eve.Partition(1, reg)[0].Run()
	assert.Equal(t, []int{0, 2, 4, 6, 8}, sink.got)
}

func TestOutPort_RoundRobinWithinNode(t *testing.T) {
	reg := eve.NewRegistry()
	src := eve.Register(reg, &numbers{n: 6, Out: eve.NewOutPort[int]()})
	a := eve.Register(reg, newCollector("sink", 0))
	b := eve.Register(reg, newCollector("sink", 1))
	connect(src.Out, a, b)

	eve.Partition(1, reg)[0].Run()
	assert.Equal(t, []int{0, 2, 4}, a.got)
	assert.Equal(t, []int{1, 3, 5}, b.got)
}

func TestOutPort_BroadcastAcrossNodes(t *testing.T) {
	reg := eve.NewRegistry()
	src := eve.Register(reg, &numbers{n: 4, Out: eve.NewOutPort[int]()})
	a0 := eve.Register(reg, newCollector("a", 0))
	a1 := eve.Register(reg, newCollector("a", 1))
	b := eve.Register(reg, newCollector("b", 0))
	connect(src.Out, a0, a1)
	connect(src.Out, b)

	eve.Partition(1, reg)[0].Run()
	assert.Equal(t, []int{0, 2}, a0.got)
	assert.Equal(t, []int{1, 3}, a1.got)
	assert.Equal(t, []int{0, 1, 2, 3}, b.got)
}

func TestSenderGroup_DropsDisconnected(t *testing.T) {
	a, b := newCollector("x", 0), newCollector("x", 1)
	g := &eve.SenderGroup[int]{}
	g.Add(a.In.Sender())
	g.Add(b.In.Sender())

	a.In.Close()
	for i := range 3 {
		assert.True(t, g.Send(i))
	}
	assert.Equal(t, 1, g.Len())

	b.In.Close()
	assert.False(t, g.Send(9))
	assert.Zero(t, g.Len())
}

func TestThread_RemovesClosedInstance(t *testing.T) {
	reg := eve.NewRegistry("sink")
	done := eve.Register(reg, newCollector("sink", 0))
	open := eve.Register(reg, newCollector("sink", 1))

	doneTx := done.In.Sender()
	require.NoError(t, doneTx.Send(7))
	doneTx.Close()
	openTx := open.In.Sender()
	defer openTx.Close()

	th := eve.Partition(1, reg)[0]

	assert.Equal(t, 2, th.Pass())
	assert.Equal(t, []int{7}, done.got)

	assert.Equal(t, 1, th.Pass(), "closed channel retires the instance")
	assert.False(t, reg.Bucket("sink").Has(0))
	assert.True(t, reg.Bucket("sink").Has(1))
	assert.False(t, slices.ContainsFunc(th.Normals(), func(n eve.Normal) bool { return n == eve.Normal(done) }))

	polls := done.polls
	for range 5 {
		th.Pass()
	}
	assert.Equal(t, polls, done.polls, "a retired instance is never polled again")
	assert.Equal(t, polls+5, open.polls)
}

func TestRunAll_PartitionsDisjointly(t *testing.T) {
	const n = 1000
	reg := eve.NewRegistry()
	src := eve.Register(reg, &numbers{n: n, Out: eve.NewOutPort[int]()})
	sinks := []*collector{
		eve.Register(reg, newCollector("sink", 0)),
		eve.Register(reg, newCollector("sink", 1)),
		eve.Register(reg, newCollector("sink", 2)),
	}
	connect(src.Out, sinks...)

	threads := eve.Partition(3, reg)
	seen := map[eve.Instance]int{}
	for _, th := range threads {
		for _, s := range th.Sources() {
			seen[s]++
		}
		for _, nrm := range th.Normals() {
			seen[nrm]++
		}
	}
	assert.Len(t, seen, 4)
	for inst, count := range seen {
		assert.Equal(t, 1, count, "%s/%d", inst.Kind(), inst.InstanceID())
	}

	eve.RunAll(threads)

	var all []int
	for _, s := range sinks {
		all = append(all, s.got...)
	}
	slices.Sort(all)
	require.Len(t, all, n)
	for i, v := range all {
		assert.Equal(t, i, v)
	}
	assert.Zero(t, reg.Len())
}

func TestRegistry_KindsAndInstances(t *testing.T) {
	reg := eve.NewRegistry("b", "a")
	eve.Register(reg, newCollector("a", 2))
	eve.Register(reg, newCollector("a", 1))
	eve.Register(reg, newCollector("c", 0))

	assert.Equal(t, []string{"b", "a", "c"}, reg.Kinds())
	var ids []string
	for _, inst := range reg.Instances() {
		ids = append(ids, inst.Kind()+string(rune('0'+inst.InstanceID())))
	}
	assert.Equal(t, []string{"a1", "a2", "c0"}, ids)
	assert.Equal(t, []int{1, 2}, reg.Bucket("a").IDs())
}
