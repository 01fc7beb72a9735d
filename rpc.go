package mailer

import (
	"context"

	"github.com/roadrunner-plugins/mailer/dispatcher"
	"github.com/roadrunner-plugins/mailer/handler"
	"github.com/roadrunner-server/errors"
)

// rpc provides RPC interface for external callers
type rpc struct {
	p *Plugin
}

// Send decodes a JSON sendEmail payload and delivers it
func (r *rpc) Send(in []byte, success *bool) error {
	const op = errors.Op("mailer_rpc_send")
	*success = false

	pld, err := handler.DecodeSendPayload(in)
	if err != nil {
		return errors.E(op, err)
	}

	req, err := dispatcher.DecodePayload(pld.Args())
	if err != nil {
		return errors.E(op, err)
	}
	req.ClientAddr = pld.ClientAddr

	ok, err := r.p.Send(context.Background(), req)
	if err != nil {
		return errors.E(op, err)
	}

	*success = ok
	return nil
}

// WriteLog appends a raw line to the event log
func (r *rpc) WriteLog(line string, success *bool) error {
	*success = r.p.WriteLog(line)
	return nil
}
