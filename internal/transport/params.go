package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"reflect"
	"strconv"
	"strings"

	"gopkg.in/go-playground/validator.v9"
)

const (
	DefaultSSHPort    = 22
	DefaultTelnetPort = 23
	DefaultBaudRate   = 9600
)

// Params is the parsed first message of a relay connection.
type Params interface {
	Kind() Kind
	// Target describes the endpoint for logs and session listings.
	// It never includes credentials.
	Target() string
}

// SSHParams holds SSH connection parameters. PrivateKey is either a path to
// a key file or PEM content.
type SSHParams struct {
	Host       string `json:"host" validate:"required"`
	Port       int    `json:"port" validate:"min=1,max=65535"`
	Username   string `json:"username" validate:"required"`
	Password   string `json:"password,omitempty"`
	PrivateKey string `json:"pkey,omitempty"`
	Passphrase string `json:"passphrase,omitempty"`
}

func (p *SSHParams) Kind() Kind { return KindSSH }

func (p *SSHParams) Target() string {
	return p.Username + "@" + net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// TelnetParams holds Telnet connection parameters. Username and Password
// are accepted for client compatibility but are not used to log in.
type TelnetParams struct {
	Host     string `json:"host" validate:"required"`
	Port     int    `json:"port" validate:"min=1,max=65535"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

func (p *TelnetParams) Kind() Kind { return KindTelnet }

func (p *TelnetParams) Target() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// SerialParams holds serial device parameters. Clients send the device path
// in "port"; "device" is accepted as an alias.
type SerialParams struct {
	Device   string `json:"port" validate:"required"`
	Alias    string `json:"device,omitempty" validate:"-"`
	BaudRate int    `json:"baudrate" validate:"gt=0"`
}

func (p *SerialParams) Kind() Kind { return KindSerial }

func (p *SerialParams) Target() string {
	return fmt.Sprintf("%s@%d", p.Device, p.BaudRate)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ParseParams decodes and validates the connection parameters for kind.
// Missing ports and baud rates take their defaults. Any failure is a
// *ProtocolError.
func ParseParams(kind Kind, data []byte) (Params, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, &ProtocolError{Transport: kind, Detail: "expected a JSON object"}
	}

	var p Params
	switch kind {
	case KindSSH:
		sp := &SSHParams{}
		if err := json.Unmarshal(data, sp); err != nil {
			return nil, &ProtocolError{Transport: kind, Detail: "decode", Err: err}
		}
		sp.Host = strings.TrimSpace(sp.Host)
		if sp.Port == 0 {
			sp.Port = DefaultSSHPort
		}
		p = sp
	case KindTelnet:
		tp := &TelnetParams{}
		if err := json.Unmarshal(data, tp); err != nil {
			return nil, &ProtocolError{Transport: kind, Detail: "decode", Err: err}
		}
		tp.Host = strings.TrimSpace(tp.Host)
		if tp.Port == 0 {
			tp.Port = DefaultTelnetPort
		}
		p = tp
	case KindSerial:
		sp := &SerialParams{}
		if err := json.Unmarshal(data, sp); err != nil {
			return nil, &ProtocolError{Transport: kind, Detail: "decode", Err: err}
		}
		if sp.Device == "" {
			sp.Device = sp.Alias
		}
		if sp.BaudRate == 0 {
			sp.BaudRate = DefaultBaudRate
		}
		p = sp
	default:
		return nil, &ProtocolError{Transport: kind, Detail: fmt.Sprintf("unknown transport %q", kind)}
	}

	if err := validate.Struct(p); err != nil {
		return nil, &ProtocolError{Transport: kind, Detail: describeValidation(err)}
	}
	return p, nil
}

func describeValidation(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "min", "max":
			msgs = append(msgs, fmt.Sprintf("%s must be between 1 and 65535", fe.Field()))
		case "gt":
			msgs = append(msgs, fe.Field()+" must be positive")
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
