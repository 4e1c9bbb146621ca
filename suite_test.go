package evloop_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestEvloop(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Event Loop Suite")
}
