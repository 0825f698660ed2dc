package gait_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestGait(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Gait Suite")
}
