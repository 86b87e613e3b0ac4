package config

import (
	"fmt"
	"net"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	gcfg "gopkg.in/gcfg.v1"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
	"k8s.io/klog/v2"

	"github.com/netgroup-polito/ovn-networking/pkg/types"
)

// DefaultConfigFilePath is read when no config file is given on the command
// line and the file exists
const DefaultConfigFilePath = "/etc/ovn-networking/ovn-networking.conf"

// OvnDBScheme describes the OVN database connection transport method
type OvnDBScheme string

const (
	// OvnDBSchemeSSL specifies SSL as the OVN database transport method
	OvnDBSchemeSSL OvnDBScheme = "ssl"
	// OvnDBSchemeTCP specifies TCP as the OVN database transport method
	OvnDBSchemeTCP OvnDBScheme = "tcp"
	// OvnDBSchemeUnix specifies Unix domains sockets as the OVN database transport method
	OvnDBSchemeUnix OvnDBScheme = "unix"
)

const (
	defaultNBSocket = "/var/run/ovn/ovnnb_db.sock"
	defaultSBSocket = "/var/run/ovn/ovnsb_db.sock"
)

// The following are global config parameters that other modules may access directly
var (
	// Default holds parsed config file parameters and command-line overrides
	Default = DefaultConfig{
		OVSDBTxnTimeout: types.OVSDBTimeout,
	}

	// Logging holds logging-related parsed config file parameters and command-line overrides
	Logging = LoggingConfig{
		File:              "", // do not log to a file by default
		Level:             4,
		LogFileMaxSize:    100,
		LogFileMaxBackups: 5,
		LogFileMaxAge:     5,
	}

	// OVN holds the driver behaviour parameters
	OVN = OVNConfig{
		NativeDHCP:           true,
		DHCPDefaultLeaseTime: types.DHCPDefaultLeaseTime,
		OVSDBMutate:          true,
		EnableSecurityGroups: true,
		VIFType:              types.VIFTypeOVS,
		BaseMAC:              types.DefaultBaseMAC,
	}

	// Metrics holds Prometheus metrics-related parameters.
	Metrics MetricsConfig

	// API holds the orchestrator facing HTTP API parameters
	API = APIConfig{
		BindAddress: "127.0.0.1:9696",
	}

	// OvnNorth holds northbound OVN database client and server authentication and location details
	OvnNorth OvnAuthConfig

	// OvnSouth holds southbound OVN database client and server authentication and location details
	OvnSouth OvnAuthConfig
)

// DefaultConfig holds parsed config file parameters and command-line overrides
type DefaultConfig struct {
	// OVSDBTxnTimeout is the timeout for db transaction, may be useful to increase for high-scale clusters.
	// default value is 10 seconds.
	OVSDBTxnTimeout time.Duration `gcfg:"db-txn-timeout"`
}

// LoggingConfig holds logging-related parsed config file parameters and command-line overrides
type LoggingConfig struct {
	// File is the path of the file to log to
	File string `gcfg:"logfile"`
	// Level is the logging verbosity level
	Level int `gcfg:"loglevel"`
	// LogFileMaxSize is the maximum size in megabytes of the logfile
	// before it gets rolled.
	LogFileMaxSize int `gcfg:"logfile-maxsize"`
	// LogFileMaxBackups represents the maximum number of old log files to retain
	LogFileMaxBackups int `gcfg:"logfile-maxbackups"`
	// LogFileMaxAge represents the maximum number of days to retain old log files
	LogFileMaxAge int `gcfg:"logfile-maxage"`
}

// OVNConfig holds the driver behaviour parameters
type OVNConfig struct {
	// NativeDHCP serves DHCP from OVN. When disabled ports get ACLs
	// letting an external DHCP server through instead.
	NativeDHCP bool `gcfg:"ovn-native-dhcp"`
	// DHCPDefaultLeaseTime is the lease time in seconds of DHCPv4 options
	DHCPDefaultLeaseTime int `gcfg:"dhcp-default-lease-time"`
	// OVSDBMutate edits set columns with native mutate operations instead
	// of verified full column rewrites
	OVSDBMutate bool `gcfg:"ovsdb-mutate"`
	// EnableSecurityGroups programs ACLs and address sets for ports
	EnableSecurityGroups bool `gcfg:"enable-security-groups"`
	// VIFType is the vif type reported for bound ports
	VIFType string `gcfg:"vif-type"`
	// BaseMAC is the prefix of the MAC addresses generated for DHCP servers
	BaseMAC string `gcfg:"base-mac"`
}

// MetricsConfig holds Prometheus metrics-related parameters.
type MetricsConfig struct {
	BindAddress       string `gcfg:"bind-address"`
	EnablePprof       bool   `gcfg:"enable-pprof"`
	NodeServerPrivKey string `gcfg:"node-server-privkey"`
	NodeServerCert    string `gcfg:"node-server-cert"`
}

// APIConfig holds the orchestrator facing HTTP API parameters
type APIConfig struct {
	BindAddress string `gcfg:"bind-address"`
}

// OvnAuthConfig holds client authentication and location details for
// an OVN database (either northbound or southbound)
type OvnAuthConfig struct {
	// e.g: "ssl:192.168.1.2:6641,ssl:192.168.1.2:6642"
	Address        string      `gcfg:"address"`
	PrivKey        string      `gcfg:"client-privkey"`
	Cert           string      `gcfg:"client-cert"`
	CACert         string      `gcfg:"client-cacert"`
	CertCommonName string      `gcfg:"cert-common-name"`
	Scheme         OvnDBScheme `gcfg:"-"`

	northbound bool
}

// Defaults are the values used when neither the config file nor the
// command line provide one
type Defaults struct {
	OvnNorthAddress string
	OvnSouthAddress string
}

// config is used to read the structured config file and to cache config in testcases
type config struct {
	Default  DefaultConfig
	Logging  LoggingConfig
	OVN      OVNConfig
	Metrics  MetricsConfig
	API      APIConfig
	OvnNorth OvnAuthConfig
	OvnSouth OvnAuthConfig
}

var (
	savedDefault  DefaultConfig
	savedLogging  LoggingConfig
	savedOVN      OVNConfig
	savedMetrics  MetricsConfig
	savedAPI      APIConfig
	savedOvnNorth OvnAuthConfig
	savedOvnSouth OvnAuthConfig

	// cliConfig captures values given on the command line
	cliConfig config
)

func init() {
	// Cache original default config values
	savedDefault = Default
	savedLogging = Logging
	savedOVN = OVN
	savedMetrics = Metrics
	savedAPI = API
	savedOvnNorth = OvnNorth
	savedOvnSouth = OvnSouth
	Flags = GetFlags(nil)
}

// PrepareTestConfig restores default config values. Used by testcases to
// provide a pristine environment between tests.
func PrepareTestConfig() {
	Default = savedDefault
	Logging = savedLogging
	OVN = savedOVN
	Metrics = savedMetrics
	API = savedAPI
	OvnNorth = savedOvnNorth
	OvnSouth = savedOvnSouth
	cliConfig = config{}
}

// CommonFlags capture general options.
var CommonFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "config-file",
		Usage: "configuration file path (default: " + DefaultConfigFilePath + ")",
	},
	&cli.DurationFlag{
		Name:        "db-txn-timeout",
		Usage:       "OVSDB transaction timeout",
		Destination: &cliConfig.Default.OVSDBTxnTimeout,
		Value:       Default.OVSDBTxnTimeout,
	},
	// Logging options
	&cli.IntFlag{
		Name:        "loglevel",
		Usage:       "log verbosity and level: info, warn, fatal, error are always printed no matter the log level. Use 5 for debug (default: 4)",
		Destination: &cliConfig.Logging.Level,
		Value:       Logging.Level,
	},
	&cli.StringFlag{
		Name:        "logfile",
		Usage:       "path of a file to direct log output to",
		Destination: &cliConfig.Logging.File,
	},
	&cli.IntFlag{
		Name:        "logfile-maxsize",
		Usage:       "Maximum size in bytes of the log file before it gets rolled",
		Destination: &cliConfig.Logging.LogFileMaxSize,
		Value:       Logging.LogFileMaxSize,
	},
	&cli.IntFlag{
		Name:        "logfile-maxbackups",
		Usage:       "Maximum number of old log files to retain",
		Destination: &cliConfig.Logging.LogFileMaxBackups,
		Value:       Logging.LogFileMaxBackups,
	},
	&cli.IntFlag{
		Name:        "logfile-maxage",
		Usage:       "Maximum number of days to retain old log files",
		Destination: &cliConfig.Logging.LogFileMaxAge,
		Value:       Logging.LogFileMaxAge,
	},
}

// OVNFlags capture the driver behaviour options
var OVNFlags = []cli.Flag{
	&cli.BoolFlag{
		Name:        "ovn-native-dhcp",
		Usage:       "Serve DHCP from OVN (default: true)",
		Destination: &cliConfig.OVN.NativeDHCP,
		Value:       OVN.NativeDHCP,
	},
	&cli.IntFlag{
		Name:        "dhcp-default-lease-time",
		Usage:       "Lease time in seconds of the DHCPv4 options",
		Destination: &cliConfig.OVN.DHCPDefaultLeaseTime,
		Value:       OVN.DHCPDefaultLeaseTime,
	},
	&cli.BoolFlag{
		Name:        "ovsdb-mutate",
		Usage:       "Edit set columns with OVSDB mutate operations (default: true)",
		Destination: &cliConfig.OVN.OVSDBMutate,
		Value:       OVN.OVSDBMutate,
	},
	&cli.BoolFlag{
		Name:        "enable-security-groups",
		Usage:       "Program ACLs and address sets for security groups (default: true)",
		Destination: &cliConfig.OVN.EnableSecurityGroups,
		Value:       OVN.EnableSecurityGroups,
	},
	&cli.StringFlag{
		Name:        "vif-type",
		Usage:       "The vif type reported for bound ports",
		Destination: &cliConfig.OVN.VIFType,
		Value:       OVN.VIFType,
	},
	&cli.StringFlag{
		Name:        "base-mac",
		Usage:       "Base of the MAC addresses generated for DHCP servers",
		Destination: &cliConfig.OVN.BaseMAC,
		Value:       OVN.BaseMAC,
	},
}

// MetricsFlags capture metrics-related options
var MetricsFlags = []cli.Flag{
	&cli.StringFlag{
		Name:        "metrics-bind-address",
		Usage:       "The IP address and port for the metrics server to serve on (set to 0.0.0.0 for all IPv4 interfaces)",
		Destination: &cliConfig.Metrics.BindAddress,
	},
	&cli.BoolFlag{
		Name:        "metrics-enable-pprof",
		Usage:       "If true, then also accept pprof requests on the metrics port.",
		Destination: &cliConfig.Metrics.EnablePprof,
		Value:       Metrics.EnablePprof,
	},
	&cli.StringFlag{
		Name:        "node-server-privkey",
		Usage:       "Private key that the metrics server uses to serve metrics over TLS.",
		Destination: &cliConfig.Metrics.NodeServerPrivKey,
	},
	&cli.StringFlag{
		Name:        "node-server-cert",
		Usage:       "Certificate that the metrics server uses to serve metrics over TLS.",
		Destination: &cliConfig.Metrics.NodeServerCert,
	},
	&cli.StringFlag{
		Name:        "api-bind-address",
		Usage:       "The IP address and port the orchestrator API serves on",
		Destination: &cliConfig.API.BindAddress,
		Value:       API.BindAddress,
	},
}

// OvnNBFlags capture OVN northbound database options
var OvnNBFlags = []cli.Flag{
	&cli.StringFlag{
		Name: "nb-address",
		Usage: "IP address and port of the OVN northbound API " +
			"(eg, ssl:1.2.3.4:6641,ssl:1.2.3.5:6642).  Leave empty to " +
			"use a local unix socket.",
		Destination: &cliConfig.OvnNorth.Address,
	},
	&cli.StringFlag{
		Name:        "nb-client-privkey",
		Usage:       "Private key that the client should use for talking to the OVN database (default when ssl address is used: /etc/openvswitch/ovnnb-privkey.pem).",
		Destination: &cliConfig.OvnNorth.PrivKey,
	},
	&cli.StringFlag{
		Name:        "nb-client-cert",
		Usage:       "Client certificate that the client should use for talking to the OVN database (default when ssl address is used: /etc/openvswitch/ovnnb-cert.pem).",
		Destination: &cliConfig.OvnNorth.Cert,
	},
	&cli.StringFlag{
		Name:        "nb-client-cacert",
		Usage:       "CA certificate that the client should use for talking to the OVN database (default when ssl address is used: /etc/openvswitch/ovnnb-ca.cert).",
		Destination: &cliConfig.OvnNorth.CACert,
	},
	&cli.StringFlag{
		Name:        "nb-cert-common-name",
		Usage:       "Common Name of the certificate used for TLS server certificate verification.",
		Destination: &cliConfig.OvnNorth.CertCommonName,
	},
}

// OvnSBFlags capture OVN southbound database options
var OvnSBFlags = []cli.Flag{
	&cli.StringFlag{
		Name: "sb-address",
		Usage: "IP address and port of the OVN southbound API " +
			"(eg, ssl:1.2.3.4:6642,ssl:1.2.3.5:6642).  " +
			"Leave empty to use a local unix socket.",
		Destination: &cliConfig.OvnSouth.Address,
	},
	&cli.StringFlag{
		Name:        "sb-client-privkey",
		Usage:       "Private key that the client should use for talking to the OVN database (default when ssl address is used: /etc/openvswitch/ovnsb-privkey.pem).",
		Destination: &cliConfig.OvnSouth.PrivKey,
	},
	&cli.StringFlag{
		Name:        "sb-client-cert",
		Usage:       "Client certificate that the client should use for talking to the OVN database(default when ssl address is used: /etc/openvswitch/ovnsb-cert.pem).",
		Destination: &cliConfig.OvnSouth.Cert,
	},
	&cli.StringFlag{
		Name:        "sb-client-cacert",
		Usage:       "CA certificate that the client should use for talking to the OVN database (default when ssl address is used /etc/openvswitch/ovnsb-ca.cert).",
		Destination: &cliConfig.OvnSouth.CACert,
	},
	&cli.StringFlag{
		Name:        "sb-cert-common-name",
		Usage:       "Common Name of the certificate used for TLS server certificate verification.",
		Destination: &cliConfig.OvnSouth.CertCommonName,
	},
}

// Flags are general command-line flags. Apps should add these flags to their
// own urfave/cli flags and call InitConfig() early in the application.
var Flags []cli.Flag

// GetFlags returns an array of all command-line flags necessary to configure
// the driver, followed by customFlags
func GetFlags(customFlags []cli.Flag) []cli.Flag {
	flags := CommonFlags
	flags = append(flags, OVNFlags...)
	flags = append(flags, MetricsFlags...)
	flags = append(flags, OvnNBFlags...)
	flags = append(flags, OvnSBFlags...)
	flags = append(flags, customFlags...)
	return flags
}

// overrideFields sets the fields of dst to the non-zero fields of src that
// differ from the matching field of defaults. A nil defaults copies every
// non-zero field.
func overrideFields(dst, src, defaults interface{}) error {
	dstStruct := reflect.ValueOf(dst).Elem()
	srcStruct := reflect.ValueOf(src).Elem()
	if dstStruct.Kind() != srcStruct.Kind() || dstStruct.Kind() != reflect.Struct {
		return fmt.Errorf("mismatched value types")
	}
	if dstStruct.NumField() != srcStruct.NumField() {
		return fmt.Errorf("mismatched struct types")
	}

	var defStruct reflect.Value
	if defaults != nil {
		defStruct = reflect.ValueOf(defaults).Elem()
	}
	// Iterate over each field in dst/src Type so we can get the tags,
	// and use the field name to retrieve the field's actual value from
	// the dst/src instance
	dstType := reflect.TypeOf(dst).Elem()
	for i := 0; i < dstType.NumField(); i++ {
		structField := dstType.Field(i)
		// Ignore private internal fields; we only care about overriding
		// 'gcfg' tagged fields read from CLI or the config file
		if _, ok := structField.Tag.Lookup("gcfg"); !ok {
			continue
		}

		dstField := dstStruct.FieldByName(structField.Name)
		srcField := srcStruct.FieldByName(structField.Name)
		var dv reflect.Value
		if defStruct.IsValid() {
			dv = defStruct.FieldByName(structField.Name)
		}
		if !dstField.IsValid() || !srcField.IsValid() {
			return fmt.Errorf("invalid struct %q field %q", dstType.Name(), structField.Name)
		}
		if dstField.Kind() != srcField.Kind() {
			return fmt.Errorf("mismatched struct %q fields %q", dstType.Name(), structField.Name)
		}
		if srcField.IsZero() {
			continue
		}
		if dv.IsValid() && reflect.DeepEqual(dv.Interface(), srcField.Interface()) {
			continue
		}
		dstField.Set(srcField)
	}
	return nil
}

func buildDefaultConfig(cli, file *config) error {
	if err := overrideFields(&Default, &file.Default, &savedDefault); err != nil {
		return err
	}
	// And CLI overrides over default and config file
	return overrideFields(&Default, &cli.Default, &savedDefault)
}

func buildLoggingConfig(ctx *cli.Context, cli, file *config) error {
	if err := overrideFields(&Logging, &file.Logging, &savedLogging); err != nil {
		return err
	}
	if err := overrideFields(&Logging, &cli.Logging, &savedLogging); err != nil {
		return err
	}
	// the default level can be asked back on the command line
	if ctx != nil && ctx.IsSet("loglevel") {
		Logging.Level = cli.Logging.Level
	}
	if Logging.Level < 0 {
		return fmt.Errorf("invalid log level %d", Logging.Level)
	}
	return nil
}

func buildOVNConfig(ctx *cli.Context, cli, file *config) error {
	// Boolean options defaulting to true cannot be turned off through
	// overrideFields since false is their zero value
	if ctx != nil {
		for name, value := range map[string]*bool{
			"ovn-native-dhcp":        &file.OVN.NativeDHCP,
			"ovsdb-mutate":           &file.OVN.OVSDBMutate,
			"enable-security-groups": &file.OVN.EnableSecurityGroups,
		} {
			if ctx.IsSet(name) {
				*value = ctx.Bool(name)
			}
		}
	}
	OVN.NativeDHCP = file.OVN.NativeDHCP
	OVN.OVSDBMutate = file.OVN.OVSDBMutate
	OVN.EnableSecurityGroups = file.OVN.EnableSecurityGroups
	if err := overrideFields(&OVN, &file.OVN, &savedOVN); err != nil {
		return err
	}
	if err := overrideFields(&OVN, &cli.OVN, &savedOVN); err != nil {
		return err
	}

	if OVN.DHCPDefaultLeaseTime <= 0 {
		return fmt.Errorf("invalid DHCP lease time %d", OVN.DHCPDefaultLeaseTime)
	}
	switch OVN.VIFType {
	case types.VIFTypeOVS, types.VIFTypeVhostUser:
	default:
		return fmt.Errorf("invalid vif type %q", OVN.VIFType)
	}
	hw, err := net.ParseMAC(OVN.BaseMAC)
	if err != nil || len(hw) != 6 {
		return fmt.Errorf("invalid base MAC %q", OVN.BaseMAC)
	}
	return nil
}

func buildMetricsConfig(cli, file *config) error {
	if err := overrideFields(&Metrics, &file.Metrics, &savedMetrics); err != nil {
		return err
	}
	if err := overrideFields(&Metrics, &cli.Metrics, &savedMetrics); err != nil {
		return err
	}
	if err := overrideFields(&API, &file.API, &savedAPI); err != nil {
		return err
	}
	if err := overrideFields(&API, &cli.API, &savedAPI); err != nil {
		return err
	}
	for _, addr := range []string{Metrics.BindAddress, API.BindAddress} {
		if addr == "" {
			continue
		}
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("invalid bind address %q: %v", addr, err)
		}
	}
	return nil
}

// parseAddress parses an OVN database address, which can be of form
// "ssl:1.2.3.4:6641,ssl:1.2.3.5:6641" or "ssl://1.2.3.4:6641,ssl://1.2.3.5:6641"
// and returns the validated address(es) and the scheme
func parseAddress(urlString string) (string, OvnDBScheme, error) {
	var parsedAddress, scheme string
	var parsedScheme OvnDBScheme

	urlString = strings.Replace(urlString, "//", "", -1)
	for _, ovnAddress := range strings.Split(urlString, ",") {
		splits := strings.SplitN(ovnAddress, ":", 2)
		if len(splits) != 2 {
			return "", "", fmt.Errorf("failed to parse OVN address %s", urlString)
		}

		if scheme == "" {
			scheme = splits[0]
		} else if scheme != splits[0] {
			return "", "", fmt.Errorf("invalid protocols in OVN address %s",
				urlString)
		}

		if scheme == "unix" {
			if parsedAddress != "" {
				parsedAddress += ","
			}
			parsedAddress += ovnAddress
		} else {
			host, port, err := net.SplitHostPort(splits[1])
			if err != nil {
				return "", "", fmt.Errorf("failed to parse OVN DB host/port %q: %v",
					splits[1], err)
			}

			if parsedAddress != "" {
				parsedAddress += ","
			}
			parsedAddress += fmt.Sprintf("%s:%s", scheme, net.JoinHostPort(host, port))
		}
	}

	switch {
	case scheme == "ssl":
		parsedScheme = OvnDBSchemeSSL
	case scheme == "tcp":
		parsedScheme = OvnDBSchemeTCP
	case scheme == "unix":
		parsedScheme = OvnDBSchemeUnix
	default:
		return "", "", fmt.Errorf("unknown OVN DB scheme %q", scheme)
	}
	return parsedAddress, parsedScheme, nil
}

// buildOvnAuth returns an OvnAuthConfig object describing the connection to an
// OVN database, given a connection description string and authentication
// details
func buildOvnAuth(northbound bool, cliAuth, confAuth *OvnAuthConfig, defaultAddress string) (*OvnAuthConfig, error) {
	auth := &OvnAuthConfig{
		northbound: northbound,
	}

	var direction string
	if northbound {
		direction = "nb"
	} else {
		direction = "sb"
	}

	// Determine final address so we know how to set cert/key defaults
	address := cliAuth.Address
	if address == "" {
		address = confAuth.Address
	}
	if address == "" {
		address = defaultAddress
	}
	if strings.HasPrefix(address, "ssl") {
		// Set up default SSL cert/key paths
		auth.CACert = "/etc/openvswitch/ovn" + direction + "-ca.cert"
		auth.PrivKey = "/etc/openvswitch/ovn" + direction + "-privkey.pem"
		auth.Cert = "/etc/openvswitch/ovn" + direction + "-cert.pem"
	}

	// Build the final auth config with overrides from CLI and config file
	if err := overrideFields(auth, confAuth, nil); err != nil {
		return nil, err
	}
	if err := overrideFields(auth, cliAuth, nil); err != nil {
		return nil, err
	}

	if address == "" {
		if auth.PrivKey != "" || auth.Cert != "" || auth.CACert != "" {
			return nil, fmt.Errorf("certificate or key given; perhaps you mean to use the 'ssl' scheme?")
		}
		auth.Scheme = OvnDBSchemeUnix
		return auth, nil
	}

	var err error
	auth.Address, auth.Scheme, err = parseAddress(address)
	if err != nil {
		return nil, err
	}

	switch auth.Scheme {
	case OvnDBSchemeSSL:
		if auth.PrivKey == "" || auth.Cert == "" || auth.CACert == "" {
			return nil, fmt.Errorf("must specify private key, certificate, and CA certificate for 'ssl' scheme")
		}
		for _, file := range []string{auth.PrivKey, auth.Cert, auth.CACert} {
			if _, err := os.Stat(file); err != nil {
				klog.Warningf("OVN %s database %s file %q is not readable yet: %v", direction, auth.Scheme, file, err)
			}
		}
	case OvnDBSchemeTCP, OvnDBSchemeUnix:
		if auth.PrivKey != "" || auth.Cert != "" || auth.CACert != "" {
			return nil, fmt.Errorf("certificate or key given; perhaps you mean to use the 'ssl' scheme?")
		}
	}
	return auth, nil
}

// GetURL returns a URL suitable for passing to ovn-northd which describes the
// transport mechanism for connection to the database
func (a *OvnAuthConfig) GetURL() string {
	if a.Address != "" {
		return a.Address
	}
	if a.northbound {
		return "unix:" + defaultNBSocket
	}
	return "unix:" + defaultSBSocket
}

// InitConfig reads the config file and common command-line options and
// constructs the global config object from them. It returns the config file
// path (if explicitly specified) or an error
func InitConfig(ctx *cli.Context, defaults *Defaults) (string, error) {
	var cfg config
	var retConfigFile string
	var configFile string
	var configFileIsDefault bool
	var err error

	if defaults == nil {
		defaults = &Defaults{}
	}

	configFile = ctx.String("config-file")
	if configFile != "" {
		configFileIsDefault = false
	} else {
		configFile = DefaultConfigFilePath
		configFileIsDefault = true
	}

	f, err := os.Open(configFile)
	// Failure to find a default config file is not a hard error
	if err != nil && !configFileIsDefault {
		return "", fmt.Errorf("failed to open config file %s: %v", configFile, err)
	}
	if f != nil {
		defer f.Close()

		// Parse ovn-networking config file.
		cfg = config{
			Default:  savedDefault,
			Logging:  savedLogging,
			OVN:      savedOVN,
			Metrics:  savedMetrics,
			API:      savedAPI,
			OvnNorth: savedOvnNorth,
			OvnSouth: savedOvnSouth,
		}
		if err = gcfg.ReadInto(&cfg, f); err != nil {
			return "", fmt.Errorf("failed to parse config file %s: %v", f.Name(), err)
		}
		klog.Infof("Parsed config file %s", f.Name())
		klog.Infof("Parsed config: %+v", cfg)
		retConfigFile = f.Name()
	} else {
		cfg.OVN = savedOVN
	}

	if err = buildDefaultConfig(&cliConfig, &cfg); err != nil {
		return "", err
	}
	if err = buildLoggingConfig(ctx, &cliConfig, &cfg); err != nil {
		return "", err
	}
	if err = buildOVNConfig(ctx, &cliConfig, &cfg); err != nil {
		return "", err
	}
	if err = buildMetricsConfig(&cliConfig, &cfg); err != nil {
		return "", err
	}

	tmpAuth, err := buildOvnAuth(true, &cliConfig.OvnNorth, &cfg.OvnNorth, defaults.OvnNorthAddress)
	if err != nil {
		return "", err
	}
	OvnNorth = *tmpAuth

	tmpAuth, err = buildOvnAuth(false, &cliConfig.OvnSouth, &cfg.OvnSouth, defaults.OvnSouthAddress)
	if err != nil {
		return "", err
	}
	OvnSouth = *tmpAuth

	klog.V(5).Infof("Default config: %+v", Default)
	klog.V(5).Infof("Logging config: %+v", Logging)
	klog.V(5).Infof("OVN config: %+v", OVN)
	klog.V(5).Infof("Metrics config: %+v", Metrics)
	klog.V(5).Infof("API config: %+v", API)
	klog.V(5).Infof("OVN North config: %+v", OvnNorth)
	klog.V(5).Infof("OVN South config: %+v", OvnSouth)

	return retConfigFile, nil
}

// SetupLogging applies the logging configuration to klog: the verbosity
// and, when a log file is configured, a rotating file output
func SetupLogging() error {
	var level klog.Level
	if err := level.Set(strconv.Itoa(Logging.Level)); err != nil {
		return fmt.Errorf("failed to set klog log level %v", err)
	}
	if Logging.File != "" {
		klog.SetOutput(&lumberjack.Logger{
			Filename:   Logging.File,
			MaxSize:    Logging.LogFileMaxSize, // megabytes
			MaxBackups: Logging.LogFileMaxBackups,
			MaxAge:     Logging.LogFileMaxAge, // days
			Compress:   true,
		})
		klog.LogToStderr(false)
	}
	return nil
}
