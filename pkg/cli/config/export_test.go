package config

// NewDeliveryForTest builds a Delivery config without going through
// CLI flag parsing
func NewDeliveryForTest(policyFile, pollerSpec string) *Delivery {
	return &Delivery{
		policyFile: policyFile,
		pollerSpec: pollerSpec,
	}
}
