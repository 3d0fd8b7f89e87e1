package direwolf

// Per-channel configuration.  The name audio_s survives from the
// original, where the channels were sound card modems.  Here each
// radio channel is a KISS connection to an external TNC or modem.

type kiss_transport_t int

const (
	KISS_PORT_NONE   kiss_transport_t = iota
	KISS_PORT_TCP                     // TCP client, e.g. another TNC's KISS port.
	KISS_PORT_SERIAL                  // Serial device.
	KISS_PORT_PTY                     // Pseudo terminal.  Mostly for testing.
)

type achan_param_s struct {
	mycall string // Station callsign-ssid for this channel.

	kiss_transport kiss_transport_t
	kiss_device    string // Serial device path, for KISS_PORT_SERIAL.
	kiss_address   string // host:port, for KISS_PORT_TCP.
	kiss_speed     int    // Serial speed, bps.

	baud int // Radio data rate, bits per second.  For transmit timing.

	/* Transmit timing, 10 mS units except persist. */

	slottime int // Delay between persistence tries.
	persist  int // Probability of transmitting, 0 - 255.
	txdelay  int // Time for flags after keying transmitter.
	txtail   int // Time for flags before unkeying.
	fulldup  int // Full duplex if non-zero.
}

/* Defaults for transmit timing. */

const DEFAULT_BAUD = 1200
const DEFAULT_SLOTTIME = 10
const DEFAULT_PERSIST = 63
const DEFAULT_TXDELAY = 30
const DEFAULT_TXTAIL = 10
const DEFAULT_FULLDUP = 0

type audio_s struct {
	chan_medium [MAX_TOTAL_CHANS]medium_t

	timestamp_format string // Precede received & transmitted frames with timestamp. strftime format.  Empty for none.

	achan [MAX_TOTAL_CHANS]achan_param_s
}

// First channel that is really a radio.  G_UNKNOWN if none.
func first_radio_channel(p *audio_s) int {
	for c := 0; c < MAX_RADIO_CHANS; c++ {
		if p.chan_medium[c] == MEDIUM_RADIO {
			return c
		}
	}

	return G_UNKNOWN
}
