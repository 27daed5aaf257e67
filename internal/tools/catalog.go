package tools

import "time"

// ToolID identifies a builtin tool.
type ToolID int

const (
	ToolPing ToolID = iota + 1
	ToolDig
	ToolWhois
	ToolTraceroute
	ToolNmap
	ToolCurl
	ToolSqlmap
	ToolNikto
	ToolExiftool
	ToolBinwalk
	ToolOpenSSL
	ToolHashcat
	ToolDisk
	ToolProcess
	ToolUptime
	ToolOllama
	ToolIwconfig
	ToolSearchsploit
)

// String returns the tool's registered name.
func (id ToolID) String() string {
	if id > 0 && int(id) <= len(builtin) {
		return builtin[id-1].Name
	}
	return "unknown"
}

const (
	hostMax = 253
	urlMax  = 2048
	pathMax = 4096
)

// builtin is indexed by ToolID-1.
var builtin = []Spec{
	{
		ID: ToolPing, Name: "ping", Category: CategoryNetwork, Executable: "ping",
		Description: "ICMP echo a host",
		Args: []ArgSpec{
			{Name: "c", Type: TypeInt, Default: "4", Max: 20, Help: "number of echo requests"},
			{Name: "target", Type: TypeString, Required: true, Max: hostMax, Positional: true},
		},
		Timeout: 30 * time.Second,
	},
	{
		ID: ToolDig, Name: "dig", Category: CategoryNetwork, Executable: "dig",
		Description: "DNS lookup",
		Args: []ArgSpec{
			{Name: "target", Type: TypeString, Required: true, Max: hostMax, Positional: true},
			{Name: "type", Type: TypeString, Default: "A", Max: 10, Positional: true, Help: "record type"},
		},
		Timeout: 15 * time.Second,
	},
	{
		ID: ToolWhois, Name: "whois", Category: CategoryNetwork, Executable: "whois",
		Description: "domain registration lookup",
		Args: []ArgSpec{
			{Name: "h", Type: TypeString, Max: hostMax, Help: "whois server"},
			{Name: "target", Type: TypeString, Required: true, Max: hostMax, Positional: true},
		},
		Timeout: 30 * time.Second,
	},
	{
		ID: ToolTraceroute, Name: "traceroute", Category: CategoryNetwork, Executable: "traceroute",
		Description: "trace the route to a host",
		Args: []ArgSpec{
			{Name: "m", Type: TypeInt, Default: "30", Max: 64, Help: "maximum hops"},
			{Name: "target", Type: TypeString, Required: true, Max: hostMax, Positional: true},
		},
		Timeout: 60 * time.Second,
	},
	{
		ID: ToolNmap, Name: "nmap", Category: CategoryNetwork, Executable: "nmap",
		Description: "port scan",
		Args: []ArgSpec{
			{Name: "p", Type: TypeString, Max: 100, Help: "port list"},
			{Name: "T", Type: TypeInt, Max: 5, Help: "timing template"},
			{Name: "top_ports", Type: TypeInt, Max: 65535},
			{Name: "open", Type: TypeBool, Help: "only show open ports"},
			{Name: "target", Type: TypeString, Required: true, Max: hostMax, Positional: true},
		},
		Timeout: 300 * time.Second,
	},
	{
		ID: ToolCurl, Name: "curl", Category: CategoryNetwork, Executable: "curl",
		Description: "HTTP request",
		Args: []ArgSpec{
			{Name: "I", Type: TypeBool, Help: "headers only"},
			{Name: "max_time", Type: TypeInt, Default: "20", Max: 120},
			{Name: "A", Type: TypeString, Max: 200, Help: "user agent"},
			{Name: "url", Type: TypeString, Required: true, Max: urlMax, Positional: true},
		},
		Timeout: 30 * time.Second,
	},
	{
		ID: ToolSqlmap, Name: "sqlmap", Category: CategorySecurity, Executable: "sqlmap",
		Description: "SQL injection scanner",
		Args: []ArgSpec{
			{Name: "u", Type: TypeString, Required: true, Max: urlMax, Help: "target URL"},
			{Name: "batch", Type: TypeBool, Default: "true"},
			{Name: "level", Type: TypeInt, Max: 5},
			{Name: "risk", Type: TypeInt, Max: 3},
		},
		Timeout: 300 * time.Second,
	},
	{
		ID: ToolNikto, Name: "nikto", Category: CategorySecurity, Executable: "nikto",
		Description: "web server scanner",
		Args: []ArgSpec{
			{Name: "h", Type: TypeString, Required: true, Max: urlMax, Help: "target host"},
			{Name: "p", Type: TypeInt, Max: 65535, Help: "port"},
		},
		Timeout: 300 * time.Second,
	},
	{
		ID: ToolExiftool, Name: "exiftool", Category: CategoryForensic, Executable: "exiftool",
		Description: "read file metadata",
		Args: []ArgSpec{
			{Name: "G", Type: TypeBool, Help: "print group names"},
			{Name: "file", Type: TypeString, Required: true, Max: pathMax, Positional: true},
		},
		Timeout: 30 * time.Second,
	},
	{
		ID: ToolBinwalk, Name: "binwalk", Category: CategoryForensic, Executable: "binwalk",
		Description: "firmware analysis",
		Args: []ArgSpec{
			{Name: "e", Type: TypeBool, Help: "extract"},
			{Name: "file", Type: TypeString, Required: true, Max: pathMax, Positional: true},
		},
		Timeout: 120 * time.Second,
	},
	{
		ID: ToolOpenSSL, Name: "openssl", Category: CategoryCrypto, Executable: "openssl",
		Description: "SHA-256 digest of a file",
		Subcommand:  []string{"dgst", "-sha256"},
		Args: []ArgSpec{
			{Name: "file", Type: TypeString, Required: true, Max: pathMax, Positional: true},
		},
		Timeout: 30 * time.Second,
	},
	{
		ID: ToolHashcat, Name: "hashcat", Category: CategoryCrypto, Executable: "hashcat",
		Description: "password hash recovery",
		Args: []ArgSpec{
			{Name: "m", Type: TypeInt, Required: true, Max: 99999, Help: "hash mode"},
			{Name: "a", Type: TypeInt, Default: "0", Max: 9, Help: "attack mode"},
			{Name: "runtime", Type: TypeInt, Max: 300},
			{Name: "potfile_disable", Type: TypeBool},
			{Name: "hash_file", Type: TypeString, Required: true, Max: pathMax, Positional: true},
			{Name: "wordlist", Type: TypeString, Max: pathMax, Positional: true},
		},
		Timeout: 300 * time.Second,
	},
	{
		ID: ToolDisk, Name: "disk", Category: CategorySystem, Executable: "df",
		Description: "disk usage",
		Args: []ArgSpec{
			{Name: "h", Type: TypeBool, Default: "true", Help: "human-readable sizes"},
			{Name: "path", Type: TypeString, Max: pathMax, Positional: true},
		},
		Timeout: 10 * time.Second,
	},
	{
		ID: ToolProcess, Name: "process", Category: CategorySystem, Executable: "ps",
		Description: "process list",
		Subcommand:  []string{"aux"},
		Timeout:     10 * time.Second,
	},
	{
		ID: ToolUptime, Name: "uptime", Category: CategorySystem, Executable: "uptime",
		Description: "system uptime and load",
		Args: []ArgSpec{
			{Name: "p", Type: TypeBool, Help: "pretty format"},
		},
		Timeout: 5 * time.Second,
	},
	{
		ID: ToolOllama, Name: "ollama", Category: CategoryAI, Executable: "ollama",
		Description: "run a prompt against a local model",
		Subcommand:  []string{"run"},
		Args: []ArgSpec{
			{Name: "model", Type: TypeString, Required: true, Max: 100, Positional: true},
			{Name: "prompt", Type: TypeString, Required: true, Max: 4000, Positional: true},
		},
		Timeout: 120 * time.Second,
	},
	{
		ID: ToolIwconfig, Name: "iwconfig", Category: CategoryWireless, Executable: "iwconfig",
		Description: "wireless interface configuration",
		Args: []ArgSpec{
			{Name: "interface", Type: TypeString, Max: 15, Positional: true},
		},
		Timeout: 10 * time.Second,
	},
	{
		ID: ToolSearchsploit, Name: "searchsploit", Category: CategoryExploitation, Executable: "searchsploit",
		Description: "search the exploit database",
		Args: []ArgSpec{
			{Name: "e", Type: TypeBool, Help: "exact match"},
			{Name: "j", Type: TypeBool, Help: "JSON output"},
			{Name: "term", Type: TypeString, Required: true, Max: 200, Positional: true},
		},
		Timeout: 60 * time.Second,
	},
}

// Builtin returns a copy of the builtin catalog.
func Builtin() []Spec {
	out := make([]Spec, len(builtin))
	copy(out, builtin)
	return out
}
