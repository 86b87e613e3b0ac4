package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"
	"text/template"

	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"

	"github.com/netgroup-polito/ovn-networking/pkg/config"
	"github.com/netgroup-polito/ovn-networking/pkg/libovsdb"
	"github.com/netgroup-polito/ovn-networking/pkg/mechdriver"
	"github.com/netgroup-polito/ovn-networking/pkg/metrics"
	"github.com/netgroup-polito/ovn-networking/pkg/ovn/dhcp"
	"github.com/netgroup-polito/ovn-networking/pkg/server"
)

const (
	// CustomAppHelpTemplate groups the options by concern
	CustomAppHelpTemplate = `NAME:
   {{.Name}} - {{.Usage}}

USAGE:
   {{.HelpName}} [global options]

VERSION:
   {{.Version}}{{if .Description}}

DESCRIPTION:
   {{.Description}}{{end}}

GLOBAL OPTIONS:{{range $title, $category := getFlagsByCategory}}
   {{upper $title}}
   {{range $index, $option := $category}}{{if $index}}
   {{end}}{{$option}}{{end}}
   {{end}}`
)

var pidfileFlag = &cli.StringFlag{
	Name:  "pidfile",
	Usage: "Name of file that will hold the ovn-networking pid (optional)",
}

func getFlagsByCategory() map[string][]cli.Flag {
	m := map[string][]cli.Flag{}
	m["Generic Options"] = append(append([]cli.Flag{}, config.CommonFlags...), pidfileFlag)
	m["Driver Options"] = config.OVNFlags
	m["OVN Northbound DB Options"] = config.OvnNBFlags
	m["OVN Southbound DB Options"] = config.OvnSBFlags
	m["Monitoring and API Options"] = config.MetricsFlags
	return m
}

// borrowed from cli packages' printHelpCustom()
func printHelp(out io.Writer, templ string, data interface{}, customFunc map[string]interface{}) {
	funcMap := template.FuncMap{
		"join":               strings.Join,
		"upper":              strings.ToUpper,
		"getFlagsByCategory": getFlagsByCategory,
	}
	for key, value := range customFunc {
		funcMap[key] = value
	}

	w := tabwriter.NewWriter(out, 1, 8, 2, ' ', 0)
	t := template.Must(template.New("help").Funcs(funcMap).Parse(templ))
	err := t.Execute(w, data)
	if err == nil {
		_ = w.Flush()
	}
}

func main() {
	cli.HelpPrinterCustom = printHelp
	c := cli.NewApp()
	c.Name = "ovn-networking"
	c.Usage = "serve the OVN mechanism driver API, mapping networks, ports and routers to the OVN northbound database"
	c.Version = metrics.Version
	c.CustomAppHelpTemplate = CustomAppHelpTemplate
	c.Flags = config.GetFlags([]cli.Flag{pidfileFlag})

	ctx, cancel := context.WithCancel(context.Background())
	c.Action = func(ctx *cli.Context) error {
		return run(ctx)
	}

	// trap SIGHUP, SIGINT, SIGTERM, SIGQUIT and
	// cancel the context
	exitCh := make(chan os.Signal, 1)
	signal.Notify(exitCh,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)
	defer func() {
		signal.Stop(exitCh)
		cancel()
	}()
	go func() {
		select {
		case s := <-exitCh:
			klog.Infof("Received signal %s. Shutting down", s)
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := c.RunContext(ctx, os.Args); err != nil {
		klog.Exit(err)
	}
}

func delPidfile(pidfile string) {
	if _, err := os.Stat(pidfile); err == nil {
		if err := os.Remove(pidfile); err != nil {
			klog.Errorf("%s delete failed: %v", pidfile, err)
		}
	}
}

func setupPIDFile(pidfile string) error {
	_, err := os.Stat(pidfile)
	if os.IsNotExist(err) {
		if err := os.WriteFile(pidfile, []byte(fmt.Sprintf("%d", os.Getpid())), 0o644); err != nil {
			klog.Errorf("Failed to write pidfile %s (%v). Ignoring..", pidfile, err)
		}
		return nil
	}
	pid, err := os.ReadFile(pidfile)
	if err != nil {
		return fmt.Errorf("pidfile %s exists but can't be read: %v", pidfile, err)
	}
	if _, err := os.Stat("/proc/" + strings.TrimSpace(string(pid)) + "/cmdline"); !os.IsNotExist(err) {
		return fmt.Errorf("pidfile %s exists and ovn-networking is running", pidfile)
	}
	// left over pid from a dead process
	if err := os.WriteFile(pidfile, []byte(fmt.Sprintf("%d", os.Getpid())), 0o644); err != nil {
		klog.Errorf("Failed to write pidfile %s (%v). Ignoring..", pidfile, err)
	}
	return nil
}

func run(ctx *cli.Context) error {
	if pidfile := ctx.String("pidfile"); pidfile != "" {
		defer delPidfile(pidfile)
		if err := setupPIDFile(pidfile); err != nil {
			return err
		}
	}

	if _, err := config.InitConfig(ctx, nil); err != nil {
		return err
	}
	if err := config.SetupLogging(); err != nil {
		return err
	}

	stopChan := make(chan struct{})
	wg := &sync.WaitGroup{}
	defer func() {
		close(stopChan)
		wg.Wait()
	}()

	nbClient, sbClient, err := libovsdb.NewClients(stopChan)
	if err != nil {
		return err
	}
	defer nbClient.Close()
	defer sbClient.Close()

	metrics.RegisterDriverMetrics()
	// every API request supplies the plugin serving its callbacks
	driver := mechdriver.NewDriver(nbClient, sbClient, nil, dhcp.NewComposer(dhcp.RandomMAC))
	apiServer := server.NewServer(driver, nbClient, sbClient)
	if err := apiServer.Start(config.API.BindAddress, stopChan, wg); err != nil {
		return err
	}

	if config.Metrics.BindAddress != "" {
		metrics.StartMetricsServer(config.Metrics.BindAddress, config.Metrics.EnablePprof,
			config.Metrics.NodeServerCert, config.Metrics.NodeServerPrivKey, stopChan, wg)
	}

	// run until cancelled
	<-ctx.Context.Done()
	return nil
}
