package transport

// Status message keys; language files use the same keys
const (
	msgConnectHost      string = "connect_host"
	msgDataNotAccepted  string = "data_not_accepted"
	msgFileAccess       string = "file_access"
	msgFromFailed       string = "from_failed"
	msgInvalidAddress   string = "invalid_address"
	msgProvideAddress   string = "provide_address"
	msgRecipientsFailed string = "recipients_failed"
)

var defaultMessages = map[string]string{
	msgConnectHost:      "SMTP Error: Could not connect to SMTP host.",
	msgDataNotAccepted:  "SMTP Error: data not accepted.",
	msgFileAccess:       "Could not access file: ",
	msgFromFailed:       "The following From address failed: ",
	msgInvalidAddress:   "Invalid address: ",
	msgProvideAddress:   "You must provide at least one recipient email address.",
	msgRecipientsFailed: "SMTP Error: The following recipients failed: ",
}
