package direwolf

/*-------------------------------------------------------------------
 *
 * Name:	ptt
 *
 * Purpose:	Track transmitter and channel activity state.
 *
 * Description:	The actual radio keying is equipment attached to the
 *		KISS TNC serving the channel so there is no hardware
 *		control line to wiggle here.  What remains is the
 *		bookkeeping.  The data link state machine has an
 *		interest in activity on the radio channel because
 *		some of its timers pause while the channel is busy.
 *
 *--------------------------------------------------------------------*/

var ptt_save_audio_config_p *audio_s

var ptt_debug_level = 0

var ptt_state [MAX_RADIO_CHANS][NUM_OCTYPES]int

var otnames [NUM_OCTYPES]string

func ptt_set_debug(debug int) {
	ptt_debug_level = debug
}

func ptt_init(audio_config_p *audio_s) {

	ptt_save_audio_config_p = audio_config_p

	otnames[OCTYPE_PTT] = "PTT"
	otnames[OCTYPE_DCD] = "DCD"
	otnames[OCTYPE_CON] = "CON"

	for ch := 0; ch < MAX_RADIO_CHANS; ch++ {
		for ot := 0; ot < NUM_OCTYPES; ot++ {
			ptt_state[ch][ot] = 0
		}
	}

} /* end ptt_init */

/*-------------------------------------------------------------------
 *
 * Name:        ptt_set
 *
 * Purpose:     Turn an output control on or off.
 *
 * Inputs:	ot		- Output control type, OCTYPE_PTT, OCTYPE_DCD, OCTYPE_CON.
 *
 *		channel		- Radio channel, 0 is first.
 *
 *		ptt_signal	- 1 for active, 0 for quiet.
 *
 * Description:	The data link state machine has an interest in activity
 *		on the radio channel.  This is a very convenient place to
 *		get that information.
 *
 *--------------------------------------------------------------------*/

func ptt_set(ot int, channel int, ptt_signal int) {

	Assert(ot >= 0 && ot < NUM_OCTYPES)
	Assert(channel >= 0 && channel < MAX_RADIO_CHANS)

	if ptt_debug_level >= 1 {
		text_color_set(DW_COLOR_DEBUG)
		dw_printf("%s %d = %d\n", otnames[ot], channel, ptt_signal)
	}

	if ptt_save_audio_config_p.chan_medium[channel] != MEDIUM_RADIO {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Internal error, ptt_set ( %s, %d, %d ), did not expect invalid channel.\n", otnames[ot], channel, ptt_signal)
		return
	}

	ptt_state[channel][ot] = ptt_signal

	dlq_channel_busy(channel, ot, ptt_signal)

} /* end ptt_set */

/*-------------------------------------------------------------------
 *
 * Name:        ptt_get
 *
 * Purpose:     Read the current state of an output control.
 *
 * Inputs:	ot	- Output control type.
 *
 *		channel	- Radio channel, 0 is first.
 *
 * Returns:	1 for active, 0 for quiet.
 *
 *--------------------------------------------------------------------*/

func ptt_get(ot int, channel int) int {

	Assert(ot >= 0 && ot < NUM_OCTYPES)
	Assert(channel >= 0 && channel < MAX_RADIO_CHANS)

	return (ptt_state[channel][ot])
}

func ptt_term() {

	for ch := 0; ch < MAX_RADIO_CHANS; ch++ {
		if ptt_save_audio_config_p.chan_medium[ch] == MEDIUM_RADIO {
			if ptt_state[ch][OCTYPE_PTT] != 0 {
				ptt_set(OCTYPE_PTT, ch, 0)
			}
		}
	}

} /* end ptt_term */
