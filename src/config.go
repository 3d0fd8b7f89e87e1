package direwolf

/*------------------------------------------------------------------
 *
 * Purpose:   	Read configuration information from a file.
 *
 * Description:	This reads a YAML configuration file when the application starts up.
 *		It contains information about the KISS TNC ports for the radio
 *		channels and various options.
 *
 *		Sample configuration:
 *
 *			agwport: 8000
 *
 *			frack: 3
 *			retry: 10
 *			paclen: 256
 *
 *			channels:
 *			  - mycall: WB2OSZ-15
 *			    kiss: tcp
 *			    address: localhost:8001
 *			    baud: 1200
 *			  - mycall: WB2OSZ-14
 *			    kiss: serial
 *			    device: /dev/ttyUSB0
 *			    speed: 9600
 *			    baud: 9600
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const DEFAULT_AGWPE_PORT = 8000

/*
 * All the leftovers.
 * This wasn't thought out.  It just happened.
 */

type misc_config_s struct {
	agwpe_port int // Port number for AGWPE TCP/IP interface.

	frack int // Number of seconds to wait for ack to transmission.

	retry int // Number of times to retry before giving up.

	paclen int // Max number of bytes in information part of frame.

	maxframe_basic int // Max frames to send before ACK.  mod 8 "Window" size.

	maxframe_extended int // Max frames to send before ACK.  mod 128 "Window" size.

	maxv22 int // Send SABME this many times before falling back to SABM.

	v20_addrs []string // Stations known to understand only AX.25 v2.0.
	// When connecting to these, skip SABME and go right to SABM.

	noxid_addrs []string // Stations known not to understand XID.
	// After connecting to these (with v2.2 obviously)
	// don't try using XID command.

	dns_sd_enabled int // DNS Service Discovery announcement.
	dns_sd_name    string // Name used in the announcement.  Defaults to hostname.

	log_daily_names int    // True to generate new log file each day.
	log_path        string // Either directory or full file name depending on above.
}

/*
 * YAML layout of the configuration file.
 */

type config_channel_yaml struct {
	Mycall  string `yaml:"mycall"`
	Kiss    string `yaml:"kiss"` // "tcp", "serial", or "pty".
	Address string `yaml:"address"`
	Device  string `yaml:"device"`
	Speed   int    `yaml:"speed"`

	Baud     int `yaml:"baud"`
	Slottime int `yaml:"slottime"`
	Persist  int `yaml:"persist"`
	Txdelay  int `yaml:"txdelay"`
	Txtail   int `yaml:"txtail"`
	Fulldup  int `yaml:"fulldup"`
}

type config_yaml struct {
	Channels []config_channel_yaml `yaml:"channels"`

	Timestamp string `yaml:"timestamp"`

	Agwport int `yaml:"agwport"`

	Frack    int `yaml:"frack"`
	Retry    int `yaml:"retry"`
	Paclen   int `yaml:"paclen"`
	Maxframe int `yaml:"maxframe"`
	Emaxframe int `yaml:"emaxframe"`
	Maxv22   int `yaml:"maxv22"`

	V20   []string `yaml:"v20"`
	Noxid []string `yaml:"noxid"`

	Dnssd     *int   `yaml:"dnssd"`
	Dnssdname string `yaml:"dnssdname"`

	Logdir  string `yaml:"logdir"`
	Logfile string `yaml:"logfile"`
}

/*-------------------------------------------------------------------
 *
 * Name:        config_init
 *
 * Purpose:     Read configuration file when application starts up.
 *
 * Inputs:	fname		- Name of configuration file.
 *
 * Outputs:	p_audio_config	- Radio channel configuration.
 *
 *		p_misc_config	- Everything else.  This wasn't thought out well.
 *
 * Errors:	For invalid input, display line number and message on stdout (not stderr).
 *		In many cases this will result in keeping the default rather than aborting.
 *
 *--------------------------------------------------------------------*/

func config_init(fname string, p_audio_config *audio_s, p_misc_config *misc_config_s) error {
	/*
	 * First apply defaults.
	 */

	*p_audio_config = audio_s{}

	for channel := 0; channel < MAX_TOTAL_CHANS; channel++ {
		p_audio_config.chan_medium[channel] = MEDIUM_NONE

		p_audio_config.achan[channel].baud = DEFAULT_BAUD
		p_audio_config.achan[channel].slottime = DEFAULT_SLOTTIME
		p_audio_config.achan[channel].persist = DEFAULT_PERSIST
		p_audio_config.achan[channel].txdelay = DEFAULT_TXDELAY
		p_audio_config.achan[channel].txtail = DEFAULT_TXTAIL
		p_audio_config.achan[channel].fulldup = DEFAULT_FULLDUP
	}

	*p_misc_config = misc_config_s{}

	p_misc_config.agwpe_port = DEFAULT_AGWPE_PORT

	p_misc_config.frack = AX25_T1V_FRACK_DEFAULT /* Number of seconds to wait for ack to transmission. */

	p_misc_config.retry = AX25_N2_RETRY_DEFAULT /* Number of times to retry before giving up. */

	p_misc_config.paclen = AX25_N1_PACLEN_DEFAULT /* Max number of bytes in information part of frame. */

	p_misc_config.maxframe_basic = AX25_K_MAXFRAME_BASIC_DEFAULT /* Max frames to send before ACK.  mod 8 "Window" size. */

	p_misc_config.maxframe_extended = AX25_K_MAXFRAME_EXTENDED_DEFAULT /* Max frames to send before ACK.  mod 128 "Window" size. */

	p_misc_config.maxv22 = AX25_N2_RETRY_DEFAULT / 3 /* Send SABME this many times before falling back to SABM. */

	p_misc_config.dns_sd_enabled = 1

	/*
	 * Try to extract options from the file.
	 */

	var raw, readErr = os.ReadFile(fname)
	if readErr != nil {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("ERROR - Could not open config file %s\n", fname)

		return readErr
	}

	var cfg config_yaml

	var yamlErr = yaml.Unmarshal(raw, &cfg)
	if yamlErr != nil {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Config file %s: %s\n", fname, yamlErr)

		return yamlErr
	}

	/*
	 * Radio channels.
	 */

	if len(cfg.Channels) > MAX_RADIO_CHANS {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Config file: Maximum of %d radio channels.  Extras ignored.\n", MAX_RADIO_CHANS)
		cfg.Channels = cfg.Channels[:MAX_RADIO_CHANS]
	}

	for channel, cc := range cfg.Channels {
		var pa = &p_audio_config.achan[channel]

		var mycall = strings.ToUpper(strings.TrimSpace(cc.Mycall))
		if !config_valid_callsign(mycall) {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Config file: Channel %d has invalid MYCALL \"%s\".\n", channel, cc.Mycall)

			return fmt.Errorf("channel %d: invalid mycall", channel)
		}

		pa.mycall = mycall

		switch strings.ToLower(cc.Kiss) {
		case "tcp":
			pa.kiss_transport = KISS_PORT_TCP

			if cc.Address == "" {
				text_color_set(DW_COLOR_ERROR)
				dw_printf("Config file: Channel %d needs \"address\" for KISS over TCP.\n", channel)

				return fmt.Errorf("channel %d: missing address", channel)
			}

			pa.kiss_address = cc.Address

		case "serial":
			pa.kiss_transport = KISS_PORT_SERIAL

			if cc.Device == "" {
				text_color_set(DW_COLOR_ERROR)
				dw_printf("Config file: Channel %d needs \"device\" for KISS over serial port.\n", channel)

				return fmt.Errorf("channel %d: missing device", channel)
			}

			pa.kiss_device = cc.Device
			pa.kiss_speed = cc.Speed

		case "pty":
			pa.kiss_transport = KISS_PORT_PTY

		default:
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Config file: Channel %d has unrecognized KISS transport \"%s\".\n", channel, cc.Kiss)
			dw_printf("Use \"tcp\", \"serial\", or \"pty\".\n")

			return fmt.Errorf("channel %d: invalid kiss transport", channel)
		}

		if cc.Baud > 0 {
			pa.baud = cc.Baud
		}

		if cc.Slottime > 0 {
			pa.slottime = cc.Slottime
		}

		if cc.Persist > 0 {
			pa.persist = cc.Persist
		}

		if cc.Txdelay > 0 {
			pa.txdelay = cc.Txdelay
		}

		if cc.Txtail > 0 {
			pa.txtail = cc.Txtail
		}

		pa.fulldup = cc.Fulldup

		p_audio_config.chan_medium[channel] = MEDIUM_RADIO
	}

	if first_radio_channel(p_audio_config) == G_UNKNOWN {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Config file: No radio channels defined.\n")

		return fmt.Errorf("no radio channels")
	}

	p_audio_config.timestamp_format = cfg.Timestamp

	/*
	 * Everything else.
	 */

	if cfg.Agwport != 0 {
		if cfg.Agwport > 0 && cfg.Agwport <= 65535 {
			p_misc_config.agwpe_port = cfg.Agwport
		} else if cfg.Agwport < 0 {
			p_misc_config.agwpe_port = 0 // disabled.
		} else {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Config file: Invalid port number for AGW TCPIP Socket Interface. Using %d.\n",
				p_misc_config.agwpe_port)
		}
	}

	if cfg.Frack != 0 {
		if cfg.Frack >= AX25_T1V_FRACK_MIN && cfg.Frack <= AX25_T1V_FRACK_MAX {
			p_misc_config.frack = cfg.Frack
		} else {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Config file: Invalid FRACK time. Using default %d.\n", p_misc_config.frack)
		}
	}

	if cfg.Retry != 0 {
		if cfg.Retry >= AX25_N2_RETRY_MIN && cfg.Retry <= AX25_N2_RETRY_MAX {
			p_misc_config.retry = cfg.Retry
		} else {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Config file: Invalid RETRY number. Using default %d.\n", p_misc_config.retry)
		}
	}

	if cfg.Paclen != 0 {
		if cfg.Paclen >= AX25_N1_PACLEN_MIN && cfg.Paclen <= AX25_N1_PACLEN_MAX {
			p_misc_config.paclen = cfg.Paclen
		} else {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Config file: Invalid PACLEN value. Using default %d.\n", p_misc_config.paclen)
		}
	}

	if cfg.Maxframe != 0 {
		if cfg.Maxframe >= AX25_K_MAXFRAME_BASIC_MIN && cfg.Maxframe <= AX25_K_MAXFRAME_BASIC_MAX {
			p_misc_config.maxframe_basic = cfg.Maxframe
		} else {
			p_misc_config.maxframe_basic = AX25_K_MAXFRAME_BASIC_DEFAULT
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Config file: Invalid MAXFRAME value outside range of %d to %d. Using default %d.\n",
				AX25_K_MAXFRAME_BASIC_MIN, AX25_K_MAXFRAME_BASIC_MAX, p_misc_config.maxframe_basic)
		}
	}

	if cfg.Emaxframe != 0 {
		if cfg.Emaxframe >= AX25_K_MAXFRAME_EXTENDED_MIN && cfg.Emaxframe <= AX25_K_MAXFRAME_EXTENDED_MAX {
			p_misc_config.maxframe_extended = cfg.Emaxframe
		} else {
			p_misc_config.maxframe_extended = AX25_K_MAXFRAME_EXTENDED_DEFAULT
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Config file: Invalid EMAXFRAME value outside range of %d to %d. Using default %d.\n",
				AX25_K_MAXFRAME_EXTENDED_MIN, AX25_K_MAXFRAME_EXTENDED_MAX, p_misc_config.maxframe_extended)
		}
	}

	if cfg.Maxv22 != 0 {
		if cfg.Maxv22 >= 0 && cfg.Maxv22 <= AX25_N2_RETRY_MAX {
			p_misc_config.maxv22 = cfg.Maxv22
		} else {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Config file: Invalid MAXV22 number. Will use default.\n")
		}
	}

	for _, addr := range cfg.V20 {
		var a = strings.ToUpper(strings.TrimSpace(addr))
		if !config_valid_callsign(a) {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Config file: V20 \"%s\" is not a valid station with optional SSID.\n", addr)

			continue
		}

		p_misc_config.v20_addrs = append(p_misc_config.v20_addrs, a)
	}

	for _, addr := range cfg.Noxid {
		var a = strings.ToUpper(strings.TrimSpace(addr))
		if !config_valid_callsign(a) {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Config file: NOXID \"%s\" is not a valid station with optional SSID.\n", addr)

			continue
		}

		p_misc_config.noxid_addrs = append(p_misc_config.noxid_addrs, a)
	}

	if cfg.Dnssd != nil {
		p_misc_config.dns_sd_enabled = *cfg.Dnssd
	}

	p_misc_config.dns_sd_name = cfg.Dnssdname

	if cfg.Logdir != "" && cfg.Logfile != "" {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Config file: LOGDIR and LOGFILE can't both be used.\n")
	}

	if cfg.Logdir != "" {
		p_misc_config.log_daily_names = 1
		p_misc_config.log_path = cfg.Logdir
	} else if cfg.Logfile != "" {
		p_misc_config.log_daily_names = 0
		p_misc_config.log_path = cfg.Logfile
	}

	return nil
} /* end config_init */

/*
 * Check for valid callsign with optional SSID.
 * 1 to 6 alphanumeric characters then optional "-" and 1 or 2 digit SSID.
 * Not picky about the details because tactical addresses are often used
 * in connected mode, e.g. "BBS" or "NODE77".
 */
func config_valid_callsign(addr string) bool {
	var call, ssid, has_ssid = strings.Cut(addr, "-")

	if len(call) < 1 || len(call) > 6 {
		return false
	}

	for _, c := range call {
		if !((c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			return false
		}
	}

	if has_ssid {
		if len(ssid) < 1 || len(ssid) > 2 {
			return false
		}

		for _, c := range ssid {
			if c < '0' || c > '9' {
				return false
			}
		}

		var n = 0
		for _, c := range ssid {
			n = n*10 + int(c-'0')
		}

		if n > 15 {
			return false
		}
	}

	return true
}
