package routeros

// ServiceKind selects which account namespace an operation targets.
type ServiceKind string

const (
	// ServicePPPoE addresses /ppp/secret entries (persistent connections).
	ServicePPPoE ServiceKind = "pppoe"
	// ServiceHotspot addresses /ip/hotspot/user entries (timed sessions).
	ServiceHotspot ServiceKind = "hotspot"
)

// Account is the provisioning input: ensure an entry with this name, password
// and profile exists on the device. Comment is shown verbatim in the device UI
// so operators can tell who an entry belongs to.
type Account struct {
	Name     string
	Password string
	Profile  string
	Comment  string
}

// Secret is a device account entry, either a PPP secret or a hotspot user.
// RouterOS identifies entries by the ".id" property.
type Secret struct {
	ID       string `json:".id"`
	Name     string `json:"name"`
	Password string `json:"password,omitempty"`
	Service  string `json:"service,omitempty"`
	Profile  string `json:"profile"`
	Uptime   string `json:"uptime,omitempty"`
	BytesIn  string `json:"bytes-in,omitempty"`
	BytesOut string `json:"bytes-out,omitempty"`
	Disabled string `json:"disabled,omitempty"`
	Comment  string `json:"comment,omitempty"`
}

// ActiveSession is a live PPP or hotspot session on the device.
type ActiveSession struct {
	ID         string `json:".id"`
	User       string `json:"user"`
	Address    string `json:"address"`
	MacAddress string `json:"mac-address,omitempty"`
	Uptime     string `json:"uptime"`
	BytesIn    string `json:"bytes-in,omitempty"`
	BytesOut   string `json:"bytes-out,omitempty"`
}

// Profile is a PPP or hotspot user profile (speed/session policy bundle).
type Profile struct {
	ID          string `json:".id"`
	Name        string `json:"name"`
	RateLimit   string `json:"rate-limit,omitempty"`
	ParentQueue string `json:"parent-queue,omitempty"`
	SharedUsers string `json:"shared-users,omitempty"`
	OnlyOne     string `json:"only-one,omitempty"`
}

// SimpleQueue is a bandwidth-control queue entry.
type SimpleQueue struct {
	ID       string `json:".id"`
	Name     string `json:"name"`
	Target   string `json:"target"`
	MaxLimit string `json:"max-limit,omitempty"`
	Comment  string `json:"comment,omitempty"`
}

// SystemResource is the device health snapshot used by monitoring.
type SystemResource struct {
	Uptime      string `json:"uptime"`
	Version     string `json:"version"`
	CPULoad     string `json:"cpu-load"`
	FreeMemory  string `json:"free-memory"`
	TotalMemory string `json:"total-memory"`
	BoardName   string `json:"board-name"`
}

// LogEntry is one device log line.
type LogEntry struct {
	ID      string `json:".id"`
	Time    string `json:"time"`
	Topics  string `json:"topics"`
	Message string `json:"message"`
}

// InterfaceTraffic is a traffic counter snapshot for one interface.
type InterfaceTraffic struct {
	Name     string `json:"name"`
	RxByte   string `json:"rx-byte,omitempty"`
	TxByte   string `json:"tx-byte,omitempty"`
	RxPacket string `json:"rx-packet,omitempty"`
	TxPacket string `json:"tx-packet,omitempty"`
}
