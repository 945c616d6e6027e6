package protocol

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Stack", func() {
	It("should parse one protocol per character", func() {
		s := ParseStack("xyz")

		Expect(s).To(Equal(Stack{"x", "y", "z"}))
		Expect(s.Len()).To(Equal(3))

		top, ok := s.Top()
		Expect(ok).To(BeTrue())
		Expect(top).To(Equal(Protocol("z")))
	})

	It("should push and pop on top", func() {
		s := Stack{}
		s.Push("a", "b")

		p, ok := s.Pop()
		Expect(ok).To(BeTrue())
		Expect(p).To(Equal(Protocol("b")))
		Expect(s).To(Equal(Stack{"a"}))

		s.Pop()
		_, ok = s.Pop()
		Expect(ok).To(BeFalse())
		_, ok = s.Top()
		Expect(ok).To(BeFalse())
	})

	It("should clone independently", func() {
		s := ParseStack("xy")
		c := s.Clone()
		c[0] = "q"

		Expect(s.Compact()).To(Equal("xy"))
		Expect(Stack(nil).Clone()).To(Equal(Stack{}))
	})

	It("should match suffixes from the top", func() {
		s := ParseStack("xyz")

		Expect(s.HasSuffix(ParseStack("z"))).To(BeTrue())
		Expect(s.HasSuffix(ParseStack("yz"))).To(BeTrue())
		Expect(s.HasSuffix(ParseStack("xy"))).To(BeFalse())
		Expect(s.HasSuffix(ParseStack("wxyz"))).To(BeFalse())
		Expect(s.HasSuffix(Stack{})).To(BeTrue())
	})

	It("should produce equal keys only for equal stacks", func() {
		Expect(ParseStack("xy").Key()).To(Equal(ParseStack("xy").Key()))
		Expect(ParseStack("xy").Key()).NotTo(Equal(ParseStack("yx").Key()))
		Expect(Stack{"ab"}.Key()).NotTo(Equal(Stack{"a", "b"}.Key()))
	})

	It("should rebuild the stack from its key", func() {
		s := Stack{"ip4", "ip6", "x"}
		k := s.Key()

		Expect(k.Stack()).To(Equal(s))
		Expect(k.Len()).To(Equal(3))
		Expect(Stack{}.Key().Stack()).To(Equal(Stack{}))
		Expect(Stack{}.Key().Len()).To(Equal(0))
	})

	It("should render", func() {
		Expect(ParseStack("xy").String()).To(Equal("<x-y>"))
		Expect(Stack{}.String()).To(Equal("<>"))
	})
})
