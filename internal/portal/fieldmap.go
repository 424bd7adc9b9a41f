package portal

import (
	"fmt"
	"net/url"
	"strconv"
)

// Canonical shipment attribute names. The mapping table binds each one to
// the portal's form field identifier, so a portal-side rename is a config
// change, not a code change.
const (
	AttrSenderName       = "senderName"
	AttrSenderContact    = "senderContact"
	AttrSenderAddress    = "senderAddress"
	AttrSenderProvince   = "senderProvince"
	AttrSenderCity       = "senderCity"
	AttrSenderBarangay   = "senderBarangay"
	AttrReceiverName     = "receiverName"
	AttrReceiverContact  = "receiverContact"
	AttrReceiverAddress  = "receiverAddress"
	AttrReceiverProvince = "receiverProvince"
	AttrReceiverCity     = "receiverCity"
	AttrReceiverBarangay = "receiverBarangay"
	AttrPackageSize      = "packageSize"
	AttrItemCategory     = "itemCategory"
	AttrQuantity         = "quantity"
	AttrWeight           = "weight"
	AttrPaymentType      = "paymentType"
)

// Mapping is the versioned table from canonical shipment attributes to the
// portal's form field names.
type Mapping struct {
	Version int               `json:"version"`
	Fields  map[string]string `json:"fields"`
}

// DefaultMapping matches the J&T merchant booking form.
func DefaultMapping() Mapping {
	return Mapping{
		Version: 1,
		Fields: map[string]string{
			AttrSenderName:       "sender_name",
			AttrSenderContact:    "sender_contact",
			AttrSenderAddress:    "sender_address",
			AttrSenderProvince:   "sender_province",
			AttrSenderCity:       "sender_city",
			AttrSenderBarangay:   "sender_barangay",
			AttrReceiverName:     "receiver_name",
			AttrReceiverContact:  "receiver_contact",
			AttrReceiverAddress:  "receiver_address",
			AttrReceiverProvince: "receiver_province",
			AttrReceiverCity:     "receiver_city",
			AttrReceiverBarangay: "receiver_barangay",
			AttrPackageSize:      "package_size",
			AttrItemCategory:     "item_category",
			AttrQuantity:         "quantity",
			AttrWeight:           "weight_kg",
			AttrPaymentType:      "payment_type",
		},
	}
}

// Values renders a shipment into portal form values. Every canonical
// attribute must be bound; an unbound one is a configuration error, not a
// field to guess at.
func (m Mapping) Values(s Shipment) (url.Values, error) {
	size := s.PackageSize
	if size == "" {
		size = "Small"
	}
	category := s.ItemCategory
	if category == "" {
		category = "General"
	}
	weight := s.WeightKg
	if weight <= 0 {
		weight = 1
	}

	attrs := map[string]string{
		AttrSenderName:       s.Sender.Name,
		AttrSenderContact:    s.Sender.Contact,
		AttrSenderAddress:    s.Sender.Address,
		AttrSenderProvince:   s.Sender.Province,
		AttrSenderCity:       s.Sender.City,
		AttrSenderBarangay:   s.Sender.Barangay,
		AttrReceiverName:     s.ReceiverName,
		AttrReceiverContact:  s.ReceiverContact,
		AttrReceiverAddress:  s.ReceiverAddress,
		AttrReceiverProvince: s.ReceiverProvince,
		AttrReceiverCity:     s.ReceiverCity,
		AttrReceiverBarangay: s.ReceiverBarangay,
		AttrPackageSize:      size,
		AttrItemCategory:     category,
		AttrQuantity:         strconv.Itoa(s.Quantity),
		AttrWeight:           strconv.Itoa(weight),
		AttrPaymentType:      "Prepaid",
	}

	out := url.Values{}
	for attr, val := range attrs {
		field, ok := m.Fields[attr]
		if !ok || field == "" {
			return nil, fmt.Errorf("field mapping v%d: attribute %q not bound", m.Version, attr)
		}
		out.Set(field, val)
	}
	return out, nil
}
