package node

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/stackroute/message"
	"github.com/sarchlab/stackroute/protocol"
	"github.com/sarchlab/stackroute/routing"
	"github.com/sarchlab/stackroute/sim/hooking"
)

type sent struct {
	to   string
	item message.Item
}

var _ = Describe("Router", func() {
	var (
		mockCtrl  *gomock.Controller
		transport *MockTransport
		ctx       context.Context
		x, xy     protocol.Stack
		identity  protocol.Function
		encap     protocol.Function
		sends     []sent
	)

	recordSends := func(from string) {
		transport.EXPECT().
			Send(gomock.Any(), from, gomock.Any(), gomock.Any()).
			DoAndReturn(func(
				_ context.Context, _, to string, item message.Item,
			) error {
				sends = append(sends, sent{to: to, item: item})
				return nil
			}).
			AnyTimes()
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		transport = NewMockTransport(mockCtrl)
		ctx = context.Background()
		x = protocol.ParseStack("x")
		xy = protocol.ParseStack("xy")
		identity = protocol.NewConversion("x", "x")
		encap = protocol.NewEncapsulation("x", "y")
		sends = nil
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	Context("when built", func() {
		It("should dedup its dialect and seed itself", func() {
			r := MakeBuilder().
				WithFunctions(identity, encap, identity).
				Build("A")

			Expect(r.ID()).To(Equal("A"))
			Expect(r.Functions()).To(Equal([]protocol.Function{identity, encap}))
			Expect(r.InSet()).To(Equal([]protocol.Stack{x}))

			row, err := r.Table().Get("A", x)
			Expect(err).NotTo(HaveOccurred())
			Expect(row).To(Equal(routing.Row{
				Dest: "A", Stack: x, NextHop: "A", Function: identity, Cost: 0,
			}))
			Expect(r.Table().Len()).To(Equal(1))
		})

		It("should panic on an invalid id", func() {
			Expect(func() { MakeBuilder().Build("A B") }).To(Panic())
		})

		It("should panic on a zero function", func() {
			Expect(func() {
				MakeBuilder().WithFunctions(protocol.Function{}).Build("A")
			}).To(Panic())
		})

		It("should accept a transport only once", func() {
			r := MakeBuilder().Build("A")
			r.SetTransport(transport)

			Expect(func() { r.SetTransport(transport) }).To(Panic())
		})

		It("should refuse to start without a transport", func() {
			r := MakeBuilder().WithFunctions(identity).Build("A")

			Expect(func() { r.Init(ctx) }).To(Panic())
		})
	})

	Context("when starting", func() {
		It("should advertise every accepted shape to every neighbor", func() {
			r := MakeBuilder().
				WithFunctions(identity, encap, protocol.NewDecapsulation("x", "y")).
				Build("A")
			r.SetTransport(transport)

			transport.EXPECT().Neighbors("A").Return([]string{"B", "C"}).AnyTimes()
			recordSends("A")

			r.Init(ctx)

			Expect(sends).To(HaveLen(4))
			for _, s := range sends {
				conf := s.item.(*message.ConfigurationMessage)
				Expect(conf.Dest).To(Equal("A"))
				Expect(conf.Cost).To(Equal(0))
			}
			Expect(sends[0].to).To(Equal("B"))
			Expect(sends[0].item.(*message.ConfigurationMessage).StackCopy()).
				To(Equal(x))
			Expect(sends[3].to).To(Equal("C"))
			Expect(sends[3].item.(*message.ConfigurationMessage).StackCopy()).
				To(Equal(xy))
			Expect(r.Stats().ConfSent).To(Equal(uint64(4)))
		})

		It("should not count sends that fail", func() {
			r := MakeBuilder().WithFunctions(identity).Build("A")
			r.SetTransport(transport)

			transport.EXPECT().Neighbors("A").Return([]string{"B"})
			transport.EXPECT().
				Send(gomock.Any(), "A", "B", gomock.Any()).
				Return(context.Canceled)

			r.Init(ctx)

			Expect(r.Stats().ConfSent).To(Equal(uint64(0)))
		})
	})

	Context("when receiving configuration", func() {
		var r *Router

		BeforeEach(func() {
			r = MakeBuilder().WithFunctions(encap).Build("B")
			r.SetTransport(transport)

			transport.EXPECT().TouchConfig().AnyTimes()
			transport.EXPECT().Neighbors("B").Return([]string{"A", "C"}).AnyTimes()
			transport.EXPECT().Cost("B", gomock.Any(), encap).Return(2, true).AnyTimes()
			recordSends("B")
		})

		It("should learn a route through the reverse function", func() {
			r.Receive(ctx, "C", message.NewConfigurationMessage("C", xy, 3))

			row, err := r.Table().Get("C", x)
			Expect(err).NotTo(HaveOccurred())
			Expect(row.NextHop).To(Equal("C"))
			Expect(row.Function).To(Equal(encap))
			Expect(row.Cost).To(Equal(5))

			Expect(sends).To(HaveLen(2))
			Expect(sends[0].to).To(Equal("A"))
			Expect(sends[1].to).To(Equal("C"))

			conf := sends[0].item.(*message.ConfigurationMessage)
			Expect(conf.Dest).To(Equal("C"))
			Expect(conf.StackCopy()).To(Equal(x))
			Expect(conf.Cost).To(Equal(5))

			Expect(r.Stats().ConfReceived).To(Equal(uint64(1)))
			Expect(r.Stats().ConfSent).To(Equal(uint64(2)))
		})

		It("should not rebroadcast a route that is not better", func() {
			r.Receive(ctx, "C", message.NewConfigurationMessage("C", xy, 3))
			r.Receive(ctx, "A", message.NewConfigurationMessage("C", xy, 3))

			Expect(sends).To(HaveLen(2))

			row, _ := r.Table().Get("C", x)
			Expect(row.NextHop).To(Equal("C"))
		})

		It("should replace a route with a cheaper one", func() {
			r.Receive(ctx, "C", message.NewConfigurationMessage("C", xy, 3))
			r.Receive(ctx, "A", message.NewConfigurationMessage("C", xy, 1))

			Expect(sends).To(HaveLen(4))

			row, _ := r.Table().Get("C", x)
			Expect(row.NextHop).To(Equal("A"))
			Expect(row.Cost).To(Equal(3))
		})

		It("should ignore shapes it can not produce", func() {
			r.Receive(ctx, "C", message.NewConfigurationMessage("C", x, 0))

			Expect(r.Table().Contains("C", x)).To(BeFalse())
			Expect(sends).To(BeEmpty())
			Expect(r.Stats().ConfReceived).To(Equal(uint64(1)))
		})

		It("should not alter the received message", func() {
			conf := message.NewConfigurationMessage("C", xy, 3)

			r.Receive(ctx, "C", conf)

			Expect(conf.StackCopy()).To(Equal(xy))
		})

		It("should raise hooks", func() {
			var positions []*hooking.HookPos
			r.AcceptHook(hooking.HookFunc(func(c hooking.HookCtx) {
				positions = append(positions, c.Pos)
			}))

			r.Receive(ctx, "C", message.NewConfigurationMessage("C", xy, 3))

			Expect(positions).To(Equal([]*hooking.HookPos{
				HookPosConfRecv,
				HookPosRouteAdded,
				HookPosConfSent,
				HookPosConfSent,
			}))
		})
	})

	Context("when discovery could grow forever", func() {
		It("should not learn stacks higher than the limit", func() {
			decap := protocol.NewDecapsulation("x", "x")
			r := MakeBuilder().
				WithFunctions(decap).
				WithMaxStackHeight(2).
				Build("B")
			r.SetTransport(transport)

			transport.EXPECT().TouchConfig().AnyTimes()
			transport.EXPECT().Neighbors("B").Return([]string{"C"}).AnyTimes()
			transport.EXPECT().Cost("B", "C", decap).Return(1, true).AnyTimes()
			recordSends("B")

			r.Receive(ctx, "C", message.NewConfigurationMessage("C", x, 0))
			Expect(r.Table().Contains("C", protocol.ParseStack("xx"))).To(BeTrue())

			r.Receive(ctx, "C",
				message.NewConfigurationMessage("C", protocol.ParseStack("xx"), 1))
			Expect(r.Table().Contains("C", protocol.ParseStack("xxx"))).
				To(BeFalse())
		})
	})

	Context("when there is no link back to the sender", func() {
		It("should not learn a route through the sender", func() {
			r := MakeBuilder().WithFunctions(encap).Build("B")
			r.SetTransport(transport)

			transport.EXPECT().TouchConfig().AnyTimes()
			transport.EXPECT().Cost("B", "C", encap).Return(0, false)
			recordSends("B")

			r.Receive(ctx, "C", message.NewConfigurationMessage("C", xy, 0))

			Expect(r.Table().Contains("C", x)).To(BeFalse())
			Expect(sends).To(BeEmpty())
			Expect(r.Stats().ConfReceived).To(Equal(uint64(1)))
		})
	})

	Context("when routing", func() {
		var r *Router

		BeforeEach(func() {
			r = MakeBuilder().WithFunctions(encap).Build("B")
			r.SetTransport(transport)
			r.Table().AddRoute("C", x, "C", encap, 1)
		})

		It("should adapt and forward", func() {
			recordSends("B")
			msg := message.NewMessage("A", "C", x, "hello")

			r.Receive(ctx, "A", msg)

			Expect(sends).To(HaveLen(1))
			Expect(sends[0].to).To(Equal("C"))
			Expect(sends[0].item).To(BeIdenticalTo(msg))
			Expect(msg.Stack).To(Equal(xy))
			Expect(r.Stats().MsgRouted).To(Equal(uint64(1)))
		})

		It("should drop messages without a route", func() {
			var reason any
			r.AcceptHook(hooking.HookFunc(func(c hooking.HookCtx) {
				if c.Pos == HookPosMsgDropped {
					reason = c.Detail
				}
			}))

			r.Route(ctx, message.NewMessage("A", "D", x, nil))

			Expect(reason).To(Equal(DropNoRoute))
			Expect(r.Stats().MsgDropped).To(Equal(uint64(1)))
			Expect(r.Stats().MsgRouted).To(Equal(uint64(0)))
		})

		It("should drop messages that grow too high", func() {
			var reason any
			r.AcceptHook(hooking.HookFunc(func(c hooking.HookCtx) {
				if c.Pos == HookPosMsgDropped {
					reason = c.Detail
				}
			}))

			msg := message.MessageBuilder{}.
				WithSrc("A").
				WithDst("C").
				WithStack(x).
				WithMaxHeight(1).
				Build()

			r.Route(ctx, msg)

			Expect(reason).To(Equal(DropMaxHeight))
			Expect(msg.Valid()).To(BeFalse())
			Expect(r.Stats().MsgDropped).To(Equal(uint64(1)))
		})

		It("should drop when the transport gives up", func() {
			transport.EXPECT().
				Send(gomock.Any(), "B", "C", gomock.Any()).
				Return(context.Canceled)

			r.Route(ctx, message.NewMessage("A", "C", x, nil))

			Expect(r.Stats().MsgDropped).To(Equal(uint64(1)))
		})
	})

	Context("when a message arrives at its destination", func() {
		It("should deliver it", func() {
			var delivered []*message.Message
			r := MakeBuilder().
				WithFunctions(identity).
				WithDestinationReached(func(m *message.Message) {
					delivered = append(delivered, m)
				}).
				Build("C")
			r.SetTransport(transport)

			msg := message.NewMessage("A", "C", x, "hello")
			r.Receive(ctx, "B", msg)

			Expect(delivered).To(ConsistOf(msg))
			Expect(r.Stats().MsgDelivered).To(Equal(uint64(1)))
		})

		It("should log by default", func() {
			r := MakeBuilder().Build("C")
			r.SetTransport(transport)

			Expect(func() {
				r.Receive(ctx, "B", message.NewMessage("A", "C", x, nil))
			}).NotTo(Panic())
			Expect(r.Stats().MsgDelivered).To(Equal(uint64(1)))
		})
	})
})
