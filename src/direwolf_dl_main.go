package direwolf

/*------------------------------------------------------------------
 *
 * Purpose:   	Main program for the connected mode data link engine:
 *
 *			AX.25 v2.0 / v2.2 data link state machine.
 *			KISS client for external TNCs (TCP, serial, pty).
 *			AGWPE network interface for client applications.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/pflag"
)

/*-------------------------------------------------------------------
 *
 * Name:        DirewolfDlMain
 *
 * Purpose:     Main program for the packet radio data link engine.
 *
 * Inputs:	Command line arguments.
 *		See usage message for details.
 *
 * Outputs:	Decoded frames are written to stdout.
 *
 *		A TCP socket is opened for communication with
 *		client applications.
 *
 *--------------------------------------------------------------------*/

func DirewolfDlMain() {
	var configFileName = pflag.StringP("config-file", "c", "direwolf-dl.yaml", "Configuration file name.")
	var agwPort = pflag.IntP("agw-port", "p", 0, "Override TCP port for AGW client applications.  0 to use configured value.")
	var debugStr = pflag.StringP("debug", "d", "", `Debug options:
a = AGWPE network protocol client.
c = Connected mode data link state machine.
cc = Connected mode data link state machine, more detail.
k = KISS port communication with the TNC.
o = output controls such as PTT and DCD.
p = dump transmitted Packets in hexadecimal.`)
	var textColor = pflag.IntP("text-color", "t", 1, `Text colors.  0=disabled. 1=default.  2,3,4,... alternatives. Use 9 to test compatibility with your terminal.`)
	var logDir = pflag.StringP("log-dir", "l", "", "Directory name for daily log files.")
	var logFile = pflag.StringP("log-file", "L", "", "File name for logging.")
	var showVersion = pflag.BoolP("version", "v", false, "Print version and exit.")

	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - an AX.25 connected mode data link engine for KISS TNCs.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: direwolf-dl [options]\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Client applications connect with the AGWPE protocol, by default on port %d.\n", DEFAULT_AGWPE_PORT)
	}

	// !!! PARSE !!!
	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(1)
	}

	if *showVersion {
		printVersion(false)
		os.Exit(0)
	}

	var d_a_opt = 0 /* "-d a" option for AGW network client.  Can be repeated for more detail. */
	var d_c_opt = 0 /* "-d c" option for connected mode data link state machine. */
	var d_k_opt = 0 /* "-d k" option for KISS port.  Can be repeated for more detail. */
	var d_o_opt = 0 /* "-d o" option for output control such as PTT and DCD. */
	var d_p_opt = 0 /* "-d p" option for dumping packets in hexadecimal. */

	for _, p := range *debugStr {
		switch p {
		case 'a':
			d_a_opt++
		case 'c':
			d_c_opt++
		case 'k':
			d_k_opt++
		case 'o':
			d_o_opt++
		case 'p':
			d_p_opt = 1
		default:
			fmt.Fprintf(os.Stderr, "Invalid debug option '%c'.\n", p)
			pflag.Usage()
			os.Exit(1)
		}
	}

	var logger = charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: true,
		Prefix:          "direwolf-dl",
	})

	text_color_init(*textColor)
	printVersion(false)

	/*
	 * Get all types of configuration settings from configuration file.
	 * Possibly override some by command line options.
	 */

	var audio_config audio_s
	var misc_config misc_config_s

	var cerr = config_init(*configFileName, &audio_config, &misc_config)
	if cerr != nil {
		logger.Error("could not read configuration", "file", *configFileName, "err", cerr)
		os.Exit(1)
	}

	if *agwPort != 0 {
		misc_config.agwpe_port = *agwPort
	}

	if *logDir != "" && *logFile != "" {
		logger.Error("logging options -l and -L can't be used together, pick one or the other")
		os.Exit(1)
	}

	if *logFile != "" {
		misc_config.log_daily_names = 0
		misc_config.log_path = *logFile
	} else if *logDir != "" {
		misc_config.log_daily_names = 1
		misc_config.log_path = *logDir
	}

	if d_a_opt > 0 {
		server_set_debug(d_a_opt)
	}
	if d_k_opt > 0 {
		kiss_port_set_debug(d_k_opt)
	}
	if d_o_opt > 0 {
		ptt_set_debug(d_o_opt)
	}

	// Done parsing, let's start doing!

	log_init(misc_config.log_daily_names != 0, misc_config.log_path)

	dlq_init()
	tq_init(&audio_config)
	ptt_init(&audio_config)
	xmit_init(&audio_config, d_p_opt)

	ax25_link_init(&misc_config, d_c_opt)

	/*
	 * Open the KISS port for each radio channel.
	 * Pointless to continue if none of them work.
	 */

	if kiss_port_init(&audio_config) < 0 {
		logger.Error("could not open any KISS TNC port")
		os.Exit(1)
	}

	/*
	 * Provide the AGW socket interface for use by client applications.
	 */

	server_init(&audio_config, &misc_config)

	if misc_config.agwpe_port > 0 && misc_config.dns_sd_enabled > 0 {
		dns_sd_announce(&misc_config)
	}

	logger.Info("ready", "agwport", misc_config.agwpe_port)

	go func() {
		var sigs = make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		<-sigs
		logger.Info("shutting down")
		log_term()
		ptt_term()
		text_color_term()
		os.Exit(0)
	}()

	/*
	 * Wait for frames and other events, one at a time,
	 * and feed them to the data link state machine.
	 */

	recv_process()
}
