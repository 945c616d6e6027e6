package cmd

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

func unsetEnv() {
	for _, name := range []string{
		envQueueSize, envDefaultCost, envQuiescence, envMaxStack, envLogLevel,
	} {
		os.Unsetenv(name)
	}
}

var _ = Describe("Config", func() {
	var flags *pflag.FlagSet

	BeforeEach(func() {
		unsetEnv()
		DeferCleanup(unsetEnv)

		flags = pflag.NewFlagSet("test", pflag.ContinueOnError)
		addConfigFlags(flags)
		Expect(flags.Set("env-file", "")).To(Succeed())
	})

	It("should default to info logs and zero parameters", func() {
		c, err := resolveConfig(flags)

		Expect(err).NotTo(HaveOccurred())
		Expect(c).To(Equal(config{LogLevel: "info"}))
	})

	It("should read the environment", func() {
		os.Setenv(envQueueSize, "7")
		os.Setenv(envDefaultCost, "2")
		os.Setenv(envMaxStack, "12")
		os.Setenv(envQuiescence, "5ms")
		os.Setenv(envLogLevel, "debug")

		c, err := resolveConfig(flags)

		Expect(err).NotTo(HaveOccurred())
		Expect(c).To(Equal(config{
			QueueSize:   7,
			DefaultCost: 2,
			MaxStack:    12,
			Quiescence:  5 * time.Millisecond,
			LogLevel:    "debug",
		}))
	})

	It("should let flags win over the environment", func() {
		os.Setenv(envQueueSize, "7")
		Expect(flags.Set("queue-size", "9")).To(Succeed())
		Expect(flags.Set("log-level", "warn")).To(Succeed())

		c, err := resolveConfig(flags)

		Expect(err).NotTo(HaveOccurred())
		Expect(c.QueueSize).To(Equal(9))
		Expect(c.LogLevel).To(Equal("warn"))
	})

	It("should reject malformed values", func() {
		os.Setenv(envQueueSize, "many")
		_, err := resolveConfig(flags)
		Expect(err).To(MatchError(ContainSubstring(envQueueSize)))

		unsetEnv()
		os.Setenv(envDefaultCost, "-1")
		_, err = resolveConfig(flags)
		Expect(err).To(MatchError(ContainSubstring("negative")))

		unsetEnv()
		os.Setenv(envQuiescence, "soon")
		_, err = resolveConfig(flags)
		Expect(err).To(MatchError(ContainSubstring(envQuiescence)))
	})

	It("should load an env file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "test.env")
		Expect(os.WriteFile(path,
			[]byte("STACKROUTE_MAX_STACK=4\nSTACKROUTE_LOG_LEVEL=error\n"),
			0o600)).To(Succeed())
		Expect(flags.Set("env-file", path)).To(Succeed())

		c, err := resolveConfig(flags)

		Expect(err).NotTo(HaveOccurred())
		Expect(c.MaxStack).To(Equal(4))
		Expect(c.LogLevel).To(Equal("error"))
	})

	It("should ignore a missing env file", func() {
		Expect(flags.Set("env-file", "does-not-exist.env")).To(Succeed())

		_, err := resolveConfig(flags)

		Expect(err).NotTo(HaveOccurred())
	})

	It("should build a logger at the configured level", func() {
		log, err := config{LogLevel: "warn"}.logger(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(log.GetLevel()).To(Equal(logrus.WarnLevel))

		_, err = config{LogLevel: "loud"}.logger(nil)
		Expect(err).To(HaveOccurred())
	})
})
