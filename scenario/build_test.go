package scenario

import (
	"context"
	"io"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/stackroute/message"
	"github.com/sarchlab/stackroute/network"
	"github.com/sarchlab/stackroute/node"
	"github.com/sarchlab/stackroute/protocol"
)

type deliveries struct {
	lock sync.Mutex
	msgs []*message.Message
}

func (d *deliveries) record(m *message.Message) {
	d.lock.Lock()
	defer d.lock.Unlock()

	d.msgs = append(d.msgs, m)
}

func (d *deliveries) count() int {
	d.lock.Lock()
	defer d.lock.Unlock()

	return len(d.msgs)
}

func stats(net *network.Network, id string) node.Stats {
	return net.Node(id).(network.StatsReporter).Stats()
}

var _ = Describe("Build", func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
		log    *logrus.Logger
		got    *deliveries
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)

		log = logrus.New()
		log.SetOutput(io.Discard)

		got = &deliveries{}
	})

	AfterEach(func() {
		cancel()
	})

	run := func(path string) *network.Network {
		s, err := Load(path)
		Expect(err).NotTo(HaveOccurred())

		net, err := s.Build(Options{Log: log, OnDelivered: got.record})
		Expect(err).NotTo(HaveOccurred())

		Expect(net.Start(ctx, 5*time.Second)).To(Succeed())
		Expect(net.Converged()).To(BeTrue())

		return net
	}

	It("should deliver the chain traffic", func() {
		net := run("testdata/chain.yaml")

		Expect(net.Name()).To(Equal("chain"))
		Expect(net.Sent()).To(Equal(uint64(10)))
		Expect(got.count()).To(Equal(10))
		Expect(stats(net, "D").MsgDelivered).To(Equal(uint64(10)))

		for _, m := range got.msgs {
			Expect(m.Dst).To(Equal("D"))
			Expect(m.Payload).To(Equal("------"))
		}
	})

	It("should apply scenario parameters and link costs", func() {
		net := run("testdata/tunnel.yaml")

		l, err := net.Link("B", "C")
		Expect(err).NotTo(HaveOccurred())
		Expect(l.Capacity()).To(Equal(50))
		Expect(l.Cost(protocol.MustParseFunction("x>xy"))).To(Equal(5))

		row, err := net.Node("A").(network.TableOwner).Table().
			Get("D", protocol.ParseStack("x"))
		Expect(err).NotTo(HaveOccurred())
		Expect(row.Cost).To(Equal(7))

		Expect(got.count()).To(Equal(10))
		for _, m := range got.msgs {
			Expect(m.Stack).To(Equal(protocol.ParseStack("x")))
			Expect(m.MaxHeight).To(Equal(10))
		}
	})

	It("should find the detour", func() {
		net := run("testdata/detour.yaml")

		Expect(stats(net, "G").MsgDelivered).To(Equal(uint64(1)))
	})

	It("should deliver traffic that enters backwards", func() {
		net := run("testdata/backwards.yaml")

		Expect(stats(net, "F").MsgDelivered).To(Equal(uint64(10)))
		Expect(stats(net, "E").MsgRouted).To(BeZero())

		for _, m := range got.msgs {
			Expect(m.Src).To(Equal("A"))
		}
	})

	It("should drop traffic to unreachable routers", func() {
		net := run("testdata/unreachable.yaml")

		Expect(got.count()).To(BeZero())
		Expect(stats(net, "B").MsgDropped).To(Equal(uint64(3)))
	})

	It("should build directed scenarios", func() {
		net := run("testdata/directed.json")

		Expect(net.Links()).To(HaveLen(2))
		Expect(stats(net, "B").MsgDelivered).To(Equal(uint64(2)))
	})

	It("should keep isolated routers", func() {
		s := &Scenario{
			Name:  "lonely",
			Nodes: map[string][]string{"A": {"x>x"}, "B": {"x>x"}, "C": nil},
			Edges: [][]string{{"A", "B"}},
		}

		net, err := s.Build(Options{Log: log})

		Expect(err).NotTo(HaveOccurred())
		Expect(net.Nodes()).To(Equal([]string{"A", "B", "C"}))
		Expect(net.Links()).To(HaveLen(1))
	})
})
