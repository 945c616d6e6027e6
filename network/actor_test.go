package network

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("wakeQueue", func() {
	It("should hand out senders in order", func() {
		q := newWakeQueue()
		q.push("A")
		q.push("B")
		q.push("A")

		Expect(q.len()).To(Equal(3))

		for _, want := range []string{"A", "B", "A"} {
			s, ok := q.pop(context.Background())
			Expect(ok).To(BeTrue())
			Expect(s).To(Equal(want))
		}
	})

	It("should block until a sender is pushed", func() {
		q := newWakeQueue()
		got := make(chan string)

		go func() {
			s, _ := q.pop(context.Background())
			got <- s
		}()

		Consistently(got, 10*time.Millisecond).ShouldNot(Receive())

		q.push("C")

		Eventually(got).Should(Receive(Equal("C")))
	})

	It("should give up when the context is done", func() {
		q := newWakeQueue()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, ok := q.pop(ctx)

		Expect(ok).To(BeFalse())
	})

	It("should take every queued sender at once", func() {
		q := newWakeQueue()
		q.push("A")
		q.push("B")

		Expect(q.takeAll()).To(Equal([]string{"A", "B"}))
		Expect(q.len()).To(BeZero())
		Expect(q.takeAll()).To(BeEmpty())
	})

	It("should never block the pusher", func() {
		q := newWakeQueue()

		for i := 0; i < 1000; i++ {
			q.push("A")
		}

		Expect(q.len()).To(Equal(1000))
	})
})
