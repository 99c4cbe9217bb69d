package ecdsasign_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestECDSASign(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Distributed ECDSA Signing Session Suite")
}
