package alqr_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestOuterLoop(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "alqr outer loop suite")
}
