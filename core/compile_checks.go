package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ ActualStateSource = (*RemoteStateSource)(nil)
	_ ActualStateSource = (*LedgerStateSource)(nil)
	_ InterruptSource   = (*SignalInterruptSource)(nil)
	_ ClientFactory     = ClientFactoryFunc(nil)

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
