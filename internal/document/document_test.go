package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/measureiq/internal/domain"
)

func TestDecodeEmpty(t *testing.T) {
	for _, in := range []string{"", "  ", "null", "{}"} {
		d, err := Decode([]byte(in))
		require.NoError(t, err, in)
		assert.Nil(t, d.BusinessProfile)
		assert.Nil(t, d.Customers)
		assert.Empty(t, d.Prices())
		assert.Equal(t, DefaultProfile(), d.Profile())

		out, err := d.Encode()
		require.NoError(t, err)
		assert.JSONEq(t, "{}", string(out))
	}
}

func TestDecodeRejectsNonObject(t *testing.T) {
	_, err := Decode([]byte(`[1,2]`))
	assert.Error(t, err)
	_, err = Decode([]byte(`{broken`))
	assert.Error(t, err)
}

func TestDecodeKnownKeys(t *testing.T) {
	d, err := Decode([]byte(`{
		"businessProfile": {"businessName": "Floors Ltd", "showAccessoriesOnQuote": true},
		"accessoryPrices": {"trim": 2.5, "underlay": "4", "bad": "x"},
		"customers": [
			{"name": "Smith", "jobRef": "J1", "rooms": [], "timestamp": 10},
			"junk",
			{"name": "Jones", "jobRef": "J2", "rooms": [], "timestamp": 20}
		]
	}`))
	require.NoError(t, err)

	p := d.Profile()
	assert.Equal(t, "Floors Ltd", p.BusinessName)
	assert.True(t, p.ShowLineItemsOnQuote)

	assert.Equal(t, domain.Number(2.5), d.Prices()["trim"])
	assert.Equal(t, domain.Number(4), d.Prices()["underlay"])
	assert.Zero(t, d.Prices()["bad"])

	require.Len(t, d.Customers, 2)
	assert.Equal(t, "Jones", d.Customers[1].Name)
}

func TestDecodeIgnoresWrongTypes(t *testing.T) {
	d, err := Decode([]byte(`{"businessProfile": "nope", "accessoryPrices": [1], "customers": {"a": 1}}`))
	require.NoError(t, err)
	assert.Nil(t, d.BusinessProfile)
	assert.Nil(t, d.AccessoryPrices)
	assert.Nil(t, d.Customers)

	out, err := d.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"businessProfile": "nope", "accessoryPrices": [1], "customers": {"a": 1}}`, string(out))
}

func TestEncodePreservesUnknownKeys(t *testing.T) {
	d, err := Decode([]byte(`{"theme": "dark", "customers": []}`))
	require.NoError(t, err)

	d.AccessoryPrices = map[string]domain.Number{"trim": 3}
	d.Customers = append(d.Customers, domain.CustomerRecord{Name: "Smith", Rooms: []domain.Room{}, Timestamp: 5})

	out, err := d.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"theme": "dark",
		"accessoryPrices": {"trim": 3},
		"customers": [{"name": "Smith", "jobRef": "", "rooms": [], "timestamp": 5}]
	}`, string(out))
}

func TestEncodeKeepsUnreadableCustomers(t *testing.T) {
	d, err := Decode([]byte(`{"customers": [
		{"name": "Old", "jobRef": "", "rooms": [], "timestamp": "last week"},
		"junk",
		{"name": "Smith", "jobRef": "", "rooms": [{"id": 1, "name": "Hall", "collapsed": "yes", "data": {}}], "timestamp": 3}
	]}`))
	require.NoError(t, err)
	require.Len(t, d.Customers, 1)
	assert.True(t, bool(d.Customers[0].Rooms[0].Collapsed))

	d.Customers = append(d.Customers, domain.CustomerRecord{Name: "Jones", Rooms: []domain.Room{}, Timestamp: 9})
	out, err := d.Encode()
	require.NoError(t, err)
	assert.Contains(t, string(out), `{"name":"Old","jobRef":"","rooms":[],"timestamp":"last week"}`)
	assert.Contains(t, string(out), `"junk"`)
	assert.Contains(t, string(out), `"name":"Jones"`)
}

func TestEncodeReplacesUnreadableCustomerByName(t *testing.T) {
	d, err := Decode([]byte(`{"customers": [{"name": "Old", "timestamp": "last week"}, {"name": "Gone", "timestamp": {}}]}`))
	require.NoError(t, err)
	assert.Empty(t, d.Customers)

	d.Customers = append(d.Customers, domain.CustomerRecord{Name: "Old", Rooms: []domain.Room{}, Timestamp: 4})
	d.DropUnreadableCustomer("Gone")
	out, err := d.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"customers": [{"name": "Old", "jobRef": "", "rooms": [], "timestamp": 4}]}`, string(out))
}
