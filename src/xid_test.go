package direwolf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

/* From Figure 4.6. Typical XID frame, from AX.25 protocol spec, v. 2.2 */
/* This is the info part after a control byte of 0xAF. */

var xid_example = []byte{

	/* FI */ 0x82, /* Format indicator */
	/* GI */ 0x80, /* Group Identifier - parameter negotiation */
	/* GL */ 0x00, /* Group length - all of the PI/PL/PV fields */
	/* GL */ 0x17, /* (2 bytes) */
	/* PI */ 0x02, /* Parameter Indicator - classes of procedures */
	/* PL */ 0x02, /* Parameter Length */

	// Erratum: Example in the protocol spec looks wrong.
	///* PV */	0x00,	/* Parameter Variable - Half Duplex, Async, Balanced Mode */
	///* PV */	0x20,	/*  */
	// I think it should be like this instead.
	/* PV */ 0x21, /* Parameter Variable - Half Duplex, Async, Balanced Mode */
	/* PV */ 0x00, /* Reserved */

	/* PI */ 0x03, /* Parameter Indicator - optional functions */
	/* PL */ 0x03, /* Parameter Length */
	/* PV */ 0x86, /* Parameter Variable - SREJ/REJ, extended addr */
	/* PV */ 0xA8, /* 16-bit FCS, TEST cmd/resp, Modulo 128 */
	/* PV */ 0x02, /* synchronous transmit */
	/* PI */ 0x06, /* Parameter Indicator - Rx I field length (bits) */
	/* PL */ 0x02, /* Parameter Length */

	// Erratum: The text does not say anything about the byte order for multibyte
	// numeric values.  In the example, we have two cases where 16 bit numbers are
	// sent with the more significant byte first.

	/* PV */ 0x04, /* Parameter Variable - 1024 bits (128 octets) */
	/* PV */ 0x00, /* */
	/* PI */ 0x08, /* Parameter Indicator - Rx window size */
	/* PL */ 0x01, /* Parameter length */
	/* PV */ 0x02, /* Parameter Variable - 2 frames */
	/* PI */ 0x09, /* Parameter Indicator - Timer T1 */
	/* PL */ 0x02, /* Parameter Length */
	/* PV */ 0x10, /* Parameter Variable - 4096 MSec */
	/* PV */ 0x00, /* */
	/* PI */ 0x0A, /* Parameter Indicator - Retries (N1) */
	/* PL */ 0x01, /* Parameter Length */
	/* PV */ 0x03, /* Parameter Variable - 3 retries */
}

func TestXIDParseSpecExample(t *testing.T) {
	var param, desc, n = xid_parse(xid_example)

	assert.Equal(t, 1, n)
	assert.NotEmpty(t, desc)
	assert.Equal(t, 0, param.full_duplex)
	assert.Equal(t, srej_single, param.srej)
	assert.Equal(t, modulo_128, param.modulo)
	assert.Equal(t, 128, param.i_field_length_rx)
	assert.Equal(t, 2, param.window_size_rx)
	assert.Equal(t, 4096, param.ack_timer)
	assert.Equal(t, 3, param.retries)

	/* encode and verify it comes out the same. */

	var info = xid_encode(&param, cr_cmd)
	assert.Equal(t, xid_example, info)
}

func TestXIDRoundtripVariations(t *testing.T) {
	var cases = []xid_param_s{
		{
			full_duplex:       1,
			srej:              srej_none,
			modulo:            modulo_8,
			i_field_length_rx: 2048,
			window_size_rx:    3,
			ack_timer:         1234,
			retries:           12,
		},
		{
			full_duplex:       0,
			srej:              srej_single,
			modulo:            modulo_8,
			i_field_length_rx: 61,
			window_size_rx:    4,
			ack_timer:         5555,
			retries:           9,
		},
		{
			full_duplex:       0,
			srej:              srej_multi,
			modulo:            modulo_128,
			i_field_length_rx: 61,
			window_size_rx:    4,
			ack_timer:         5555,
			retries:           9,
		},
	}

	for _, original := range cases {
		var info = xid_encode(&original, cr_cmd)
		var parsed, _, n = xid_parse(info)

		assert.Equal(t, 1, n)
		assert.Equal(t, original.full_duplex, parsed.full_duplex)
		assert.Equal(t, original.srej, parsed.srej)
		assert.Equal(t, original.modulo, parsed.modulo)
		assert.Equal(t, original.i_field_length_rx, parsed.i_field_length_rx)
		assert.Equal(t, original.window_size_rx, parsed.window_size_rx)
		assert.Equal(t, original.ack_timer, parsed.ack_timer)
		assert.Equal(t, original.retries, parsed.retries)
	}
}

// "If this field is not present, the current values are retained."
func TestXIDPartialParameters(t *testing.T) {
	var param = xid_param_s{
		full_duplex:       0,
		srej:              srej_single,
		modulo:            modulo_8,
		i_field_length_rx: G_UNKNOWN,
		window_size_rx:    G_UNKNOWN,
		ack_timer:         999,
		retries:           G_UNKNOWN,
	}

	var info = xid_encode(&param, cr_cmd)
	var parsed, _, n = xid_parse(info)

	assert.Equal(t, 1, n)
	assert.Equal(t, 0, parsed.full_duplex)
	assert.Equal(t, srej_single, parsed.srej)
	assert.Equal(t, modulo_8, parsed.modulo)
	assert.Equal(t, G_UNKNOWN, parsed.i_field_length_rx)
	assert.Equal(t, G_UNKNOWN, parsed.window_size_rx)
	assert.Equal(t, 999, parsed.ack_timer)
	assert.Equal(t, G_UNKNOWN, parsed.retries)
}

func TestXIDEmptyInfo(t *testing.T) {
	var parsed, _, n = xid_parse([]byte{})

	assert.Equal(t, 1, n)
	assert.Equal(t, G_UNKNOWN, parsed.full_duplex)
	assert.Equal(t, srej_not_specified, parsed.srej)
	assert.Equal(t, modulo_unknown, parsed.modulo)
	assert.Equal(t, G_UNKNOWN, parsed.i_field_length_rx)
	assert.Equal(t, G_UNKNOWN, parsed.window_size_rx)
	assert.Equal(t, G_UNKNOWN, parsed.ack_timer)
	assert.Equal(t, G_UNKNOWN, parsed.retries)
}

func TestXIDGarbageRejected(t *testing.T) {
	var _, _, n = xid_parse([]byte{0xff, 0xff, 0x00})
	assert.Equal(t, 0, n, "Wrong format indicator should fail")
}
