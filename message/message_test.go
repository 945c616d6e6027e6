package message

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/stackroute/protocol"
)

var _ = Describe("Message", func() {
	It("should default the max height", func() {
		m := NewMessage("A", "B", protocol.ParseStack("x"), "hello")

		Expect(m.MaxHeight).To(Equal(DefaultMaxHeight))
		Expect(m.Valid()).To(BeTrue())
		Expect(m.Meta().Kind).To(Equal(KindData))
		Expect(m.ID).NotTo(BeEmpty())
	})

	It("should copy the initial stack", func() {
		s := protocol.ParseStack("x")
		m := NewMessage("A", "B", s, nil)
		s[0] = "q"

		Expect(m.Stack).To(Equal(protocol.ParseStack("x")))
	})

	It("should be invalid when created too high", func() {
		m := MessageBuilder{}.
			WithStack(protocol.ParseStack("xyz")).
			WithMaxHeight(2).
			Build()

		Expect(m.Valid()).To(BeFalse())
	})

	It("should honor an explicit zero max height", func() {
		m := MessageBuilder{}.
			WithStack(protocol.ParseStack("x")).
			WithMaxHeight(0).
			Build()

		Expect(m.MaxHeight).To(Equal(0))
		Expect(m.Valid()).To(BeFalse())
	})

	It("should panic on a negative max height", func() {
		b := MessageBuilder{}.
			WithStack(protocol.ParseStack("x")).
			WithMaxHeight(-1)

		Expect(func() { b.Build() }).To(Panic())
	})

	It("should adapt the stack in place", func() {
		m := NewMessage("A", "B", protocol.ParseStack("x"), nil)

		err := m.Adapt(protocol.NewEncapsulation("x", "y"))

		Expect(err).NotTo(HaveOccurred())
		Expect(m.Stack).To(Equal(protocol.ParseStack("xy")))
		Expect(m.Height()).To(Equal(2))
		Expect(m.Valid()).To(BeTrue())
	})

	It("should turn invalid when growing past the max height", func() {
		m := MessageBuilder{}.
			WithStack(protocol.ParseStack("x")).
			WithMaxHeight(1).
			Build()
		Expect(m.Valid()).To(BeTrue())

		err := m.Adapt(protocol.NewEncapsulation("x", "y"))

		Expect(err).NotTo(HaveOccurred())
		Expect(m.Valid()).To(BeFalse())
		Expect(m.Stack).To(Equal(protocol.ParseStack("xy")))
	})

	It("should stay valid at exactly the max height", func() {
		m := MessageBuilder{}.
			WithStack(protocol.ParseStack("x")).
			WithMaxHeight(2).
			Build()

		Expect(m.Adapt(protocol.NewEncapsulation("x", "y"))).To(Succeed())
		Expect(m.Valid()).To(BeTrue())
	})

	It("should not change the stack when the function does not apply", func() {
		m := NewMessage("A", "B", protocol.ParseStack("x"), nil)

		err := m.Adapt(protocol.NewConversion("y", "z"))

		Expect(err).To(MatchError(protocol.ErrNotApplicable))
		Expect(m.Stack).To(Equal(protocol.ParseStack("x")))
		Expect(m.Valid()).To(BeTrue())
	})

	It("should clone with a new ID", func() {
		m := MessageBuilder{}.
			WithID("m1").
			WithSrc("A").
			WithDst("B").
			WithStack(protocol.ParseStack("xy")).
			Build()

		c := m.Clone()
		c.Stack[0] = "q"

		Expect(c.ID).NotTo(Equal("m1"))
		Expect(c.Src).To(Equal("A"))
		Expect(m.Stack).To(Equal(protocol.ParseStack("xy")))
		Expect(c.Valid()).To(BeTrue())
	})
})

var _ = Describe("ConfigurationMessage", func() {
	It("should hand out independent copies of its stack", func() {
		s := protocol.ParseStack("xy")
		m := NewConfigurationMessage("A", s, 3)
		s[0] = "q"

		c := m.StackCopy()
		c.Pop()

		Expect(m.StackCopy()).To(Equal(protocol.ParseStack("xy")))
		Expect(m.StackKey()).To(Equal(protocol.ParseStack("xy").Key()))
		Expect(m.Cost).To(Equal(3))
		Expect(m.Meta().Kind).To(Equal(KindConfig))
	})

	It("should be an item", func() {
		var items []Item
		items = append(items,
			NewConfigurationMessage("A", protocol.ParseStack("x"), 0),
			NewMessage("A", "B", protocol.ParseStack("x"), nil))

		Expect(items[0].Meta().Kind).To(Equal(KindConfig))
		Expect(items[1].Meta().Kind).To(Equal(KindData))
	})
})
