package direwolf

// Widely used constants from direwolf.h.

/*
 * Maximum number of radio channels.
 * Each radio channel is served by its own KISS TNC port.
 */

const MAX_RADIO_CHANS = 6

const MAX_TOTAL_CHANS = 16 // v1.7 allows additional virtual channels which are connected
// to something other than radio modems.
// Total maximum channels is based on the 4 bit KISS field.

/*
 * Universal "unknown" value for a numeric parameter that was not supplied.
 * Chosen to be out of range for anything we deal with.
 */

const G_UNKNOWN = -999999

/*
 * What is connected to each channel?
 */

type medium_t int

const (
	MEDIUM_NONE   medium_t = iota // Channel not in use.
	MEDIUM_RADIO                  // Radio via a KISS TNC port.
	MEDIUM_IGATE                  // Internet gateway (not used here).
	MEDIUM_NETTNC                 // Network TNC, AX.25 only, no radio control.
)

/*
 * Output control lines.  Only PTT and DCD are meaningful without
 * direct radio hardware but the numbering is load bearing: the
 * channel busy report in the data link queue uses these values.
 */

const (
	OCTYPE_PTT = 0
	OCTYPE_DCD = 1
	OCTYPE_CON = 2

	NUM_OCTYPES = 3
)
