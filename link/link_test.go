package link

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/stackroute/message"
	"github.com/sarchlab/stackroute/protocol"
	"github.com/sarchlab/stackroute/sim/hooking"
)

var _ = Describe("Link", func() {
	var (
		l     *Link
		encap protocol.Function
	)

	BeforeEach(func() {
		encap = protocol.NewEncapsulation("x", "y")
		l = MakeBuilder().
			WithCapacity(2).
			WithDefaultCost(3).
			WithFunctionCost(encap, 7).
			Build("A", "B")
	})

	newItem := func() message.Item {
		return message.NewConfigurationMessage("A", protocol.ParseStack("x"), 0)
	}

	It("should be named after its endpoints", func() {
		Expect(l.Name()).To(Equal("A->B"))
		Expect(l.From()).To(Equal("A"))
		Expect(l.To()).To(Equal("B"))
		Expect(l.Capacity()).To(Equal(2))
	})

	It("should price functions", func() {
		Expect(l.Cost(encap)).To(Equal(7))
		Expect(l.Cost(protocol.NewConversion("x", "x"))).To(Equal(3))
		Expect(l.DefaultCost()).To(Equal(3))
	})

	It("should keep items in order", func() {
		a, b := newItem(), newItem()

		Expect(l.Push(context.Background(), a)).To(Succeed())
		Expect(l.Push(context.Background(), b)).To(Succeed())
		Expect(l.Len()).To(Equal(2))

		first, ok := l.Pop()
		Expect(ok).To(BeTrue())
		Expect(first).To(BeIdenticalTo(a))

		second, _ := l.Pop()
		Expect(second).To(BeIdenticalTo(b))

		_, ok = l.Pop()
		Expect(ok).To(BeFalse())
	})

	It("should refuse to try-push when full", func() {
		Expect(l.TryPush(newItem())).To(BeTrue())
		Expect(l.TryPush(newItem())).To(BeTrue())
		Expect(l.TryPush(newItem())).To(BeFalse())
	})

	It("should block when full until the context is done", func() {
		l.TryPush(newItem())
		l.TryPush(newItem())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		err := l.Push(ctx, newItem())

		Expect(err).To(MatchError(context.DeadlineExceeded))
		Expect(l.Len()).To(Equal(2))
	})

	It("should unblock when the reader pops", func() {
		l.TryPush(newItem())
		l.TryPush(newItem())

		done := make(chan error)
		go func() {
			done <- l.Push(context.Background(), newItem())
		}()

		Consistently(done, 10*time.Millisecond).ShouldNot(Receive())

		l.Pop()

		Eventually(done).Should(Receive(BeNil()))
		Expect(l.Len()).To(Equal(2))
	})

	It("should drain", func() {
		l.TryPush(newItem())
		l.TryPush(newItem())

		var seen []message.Item
		n := l.Drain(func(item message.Item) {
			seen = append(seen, item)
		})

		Expect(n).To(Equal(2))
		Expect(seen).To(HaveLen(2))
		Expect(l.Len()).To(Equal(0))
	})

	It("should invoke hooks", func() {
		var positions []*hooking.HookPos
		l.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			positions = append(positions, ctx.Pos)
		}))

		l.TryPush(newItem())
		l.Pop()

		Expect(positions).To(Equal(
			[]*hooking.HookPos{HookPosLinkPush, HookPosLinkPop}))
	})

	It("should run push hooks before the item is visible to the reader", func() {
		var lens []int
		l.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			if ctx.Pos == HookPosLinkPush {
				lens = append(lens, l.Len())
			}
		}))

		Expect(l.Push(context.Background(), newItem())).To(Succeed())
		Expect(l.TryPush(newItem())).To(BeTrue())

		Expect(lens).To(Equal([]int{0, 1}))
	})

	It("should not run push hooks when try-push is refused", func() {
		l.TryPush(newItem())
		l.TryPush(newItem())

		pushes := 0
		l.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			if ctx.Pos == HookPosLinkPush {
				pushes++
			}
		}))

		Expect(l.TryPush(newItem())).To(BeFalse())
		Expect(pushes).To(BeZero())
	})

	It("should serve wake-ups while blocked", func() {
		l.TryPush(newItem())
		l.TryPush(newItem())

		wake := make(chan struct{})
		served := make(chan struct{}, 10)
		done := make(chan error)

		go func() {
			done <- l.PushServing(context.Background(), newItem(), wake,
				func() { served <- struct{}{} })
		}()

		wake <- struct{}{}
		Eventually(served).Should(Receive())
		Consistently(done, 10*time.Millisecond).ShouldNot(Receive())

		l.Pop()

		Eventually(done).Should(Receive(BeNil()))
		Expect(l.Len()).To(Equal(2))
	})

	It("should not share costs between builders", func() {
		b := MakeBuilder().WithFunctionCost(encap, 2)
		l1 := b.Build("A", "B")
		l2 := b.WithFunctionCost(encap, 9).Build("B", "A")

		Expect(l1.Cost(encap)).To(Equal(2))
		Expect(l2.Cost(encap)).To(Equal(9))
	})

	It("should panic on bad parameters", func() {
		Expect(func() { MakeBuilder().WithCapacity(0).Build("A", "B") }).
			To(Panic())
		Expect(func() { MakeBuilder().Build("", "B") }).To(Panic())
	})
})
