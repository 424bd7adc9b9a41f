package portal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleShipment() Shipment {
	return Shipment{
		Sender: SenderProfile{
			Name:     "Sample Shop",
			Contact:  "+639123456789",
			Address:  "Unit 4, Main St",
			Province: "Metro Manila",
			City:     "Quezon City",
			Barangay: "Diliman",
		},
		ReceiverName:     "Juan Dela Cruz",
		ReceiverContact:  "+639987654321",
		ReceiverAddress:  "88 Mabini St",
		ReceiverProvince: "Cebu",
		ReceiverCity:     "Cebu City",
		ReceiverBarangay: "Lahug",
		PackageSize:      "Medium",
		ItemCategory:     "Apparel",
		Quantity:         2,
		WeightKg:         3,
	}
}

func TestDefaultMappingBindsEveryAttribute(t *testing.T) {
	form, err := DefaultMapping().Values(sampleShipment())
	require.NoError(t, err)

	assert.Len(t, form, len(DefaultMapping().Fields))
	assert.Equal(t, "Sample Shop", form.Get("sender_name"))
	assert.Equal(t, "Juan Dela Cruz", form.Get("receiver_name"))
	assert.Equal(t, "Cebu City", form.Get("receiver_city"))
	assert.Equal(t, "Medium", form.Get("package_size"))
	assert.Equal(t, "Apparel", form.Get("item_category"))
	assert.Equal(t, "2", form.Get("quantity"))
	assert.Equal(t, "3", form.Get("weight_kg"))
	assert.Equal(t, "Prepaid", form.Get("payment_type"))
}

func TestValuesAppliesDefaults(t *testing.T) {
	s := sampleShipment()
	s.PackageSize = ""
	s.ItemCategory = ""
	s.WeightKg = 0

	form, err := DefaultMapping().Values(s)
	require.NoError(t, err)

	assert.Equal(t, "Small", form.Get("package_size"))
	assert.Equal(t, "General", form.Get("item_category"))
	assert.Equal(t, "1", form.Get("weight_kg"))
}

func TestValuesRejectsUnboundAttribute(t *testing.T) {
	m := DefaultMapping()
	fields := make(map[string]string, len(m.Fields))
	for k, v := range m.Fields {
		fields[k] = v
	}
	delete(fields, AttrWeight)
	m.Fields = fields

	_, err := m.Values(sampleShipment())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not bound")
	assert.Contains(t, err.Error(), AttrWeight)
}
