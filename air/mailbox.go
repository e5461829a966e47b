package air

import "github.com/mklimuk/iaq/register"

// Mailbox enumerates the CCS811 application registers.
type Mailbox int

const (
	MailboxStatus Mailbox = iota
	MailboxMeasMode
	MailboxAlgResultData
	MailboxRawData
	MailboxEnvData
	MailboxNTC
	MailboxThresholds
	MailboxBaseline
	MailboxHWID
	MailboxHWVersion
	MailboxFWBootVersion
	MailboxFWAppVersion
	MailboxErrorID
	MailboxSWReset
	mailboxCount
)

// datasheet DS000459, figure 14
var mailboxes = [mailboxCount]register.Channel{
	MailboxStatus:        {ID: 0x00, Size: 1, Readable: true},
	MailboxMeasMode:      {ID: 0x01, Size: 1, Readable: true, Writeable: true},
	MailboxAlgResultData: {ID: 0x02, Size: 8, Readable: true},
	MailboxRawData:       {ID: 0x03, Size: 2, Readable: true},
	MailboxEnvData:       {ID: 0x05, Size: 4, Writeable: true},
	MailboxNTC:           {ID: 0x06, Size: 4, Readable: true},
	MailboxThresholds:    {ID: 0x10, Size: 5, Writeable: true},
	MailboxBaseline:      {ID: 0x11, Size: 2, Readable: true, Writeable: true},
	MailboxHWID:          {ID: 0x20, Size: 1, Readable: true},
	MailboxHWVersion:     {ID: 0x21, Size: 1, Readable: true},
	MailboxFWBootVersion: {ID: 0x23, Size: 2, Readable: true},
	MailboxFWAppVersion:  {ID: 0x24, Size: 2, Readable: true},
	MailboxErrorID:       {ID: 0xE0, Size: 1, Readable: true},
	MailboxSWReset:       {ID: 0xFF, Size: 4, Writeable: true},
}

var mailboxNames = [mailboxCount]string{
	MailboxStatus:        "STATUS",
	MailboxMeasMode:      "MEAS_MODE",
	MailboxAlgResultData: "ALG_RESULT_DATA",
	MailboxRawData:       "RAW_DATA",
	MailboxEnvData:       "ENV_DATA",
	MailboxNTC:           "NTC",
	MailboxThresholds:    "THRESHOLDS",
	MailboxBaseline:      "BASELINE",
	MailboxHWID:          "HW_ID",
	MailboxHWVersion:     "HW_VERSION",
	MailboxFWBootVersion: "FW_BOOT_VERSION",
	MailboxFWAppVersion:  "FW_APP_VERSION",
	MailboxErrorID:       "ERROR_ID",
	MailboxSWReset:       "SW_RESET",
}

// Channel returns the id, size and permissions of the mailbox.
func (m Mailbox) Channel() register.Channel {
	return mailboxes[m]
}

func (m Mailbox) String() string {
	if m < 0 || m >= mailboxCount {
		return "UNKNOWN"
	}
	return mailboxNames[m]
}

// Mailboxes lists every known mailbox.
func Mailboxes() []Mailbox {
	all := make([]Mailbox, 0, mailboxCount)
	for m := MailboxStatus; m < mailboxCount; m++ {
		all = append(all, m)
	}
	return all
}
