package config

import (
	"encoding/json"
	"io"
)

// jsonLocation and jsonServer mirror Location/Server field-for-field so
// json.Unmarshal can target unexported bookkeeping (hasBodyMaxSize)
// correctly via explicit translation below.
type jsonLocation struct {
	Pattern      string     `json:"pattern"`
	Root         string     `json:"root,omitempty"`
	Alias        string     `json:"alias,omitempty"`
	Index        []string   `json:"index,omitempty"`
	AllowMethods []string   `json:"allow_methods,omitempty"`
	BodyMaxSize  *int64     `json:"client_max_body_size,omitempty"`
	ReturnCode   int        `json:"return_code,omitempty"`
	ReturnURL    string     `json:"return_url,omitempty"`
	ErrorPages   ErrorPages `json:"error_page,omitempty"`
	Autoindex    bool       `json:"autoindex,omitempty"`
	UploadDir    string     `json:"upload_path,omitempty"`
	CGIExt       []string   `json:"cgi_ext,omitempty"`
	CGIPath      []string   `json:"cgi_path,omitempty"`
}

type jsonServer struct {
	Listen      int            `json:"listen"`
	Host        string         `json:"host,omitempty"`
	ServerNames []string       `json:"server_name,omitempty"`
	Root        string         `json:"root,omitempty"`
	Index       []string       `json:"index,omitempty"`
	BodyMaxSize int64          `json:"client_max_body_size,omitempty"`
	ErrorPages  ErrorPages     `json:"error_page,omitempty"`
	Locations   []jsonLocation `json:"locations,omitempty"`
}

type jsonTree struct {
	Servers []jsonServer `json:"servers"`
}

// Load decodes a JSON document describing the configuration tree.
//
// This is a test/demo convenience, not a directive-file parser: real
// deployments hand the reactor a *Tree built externally. The on-disk
// shape here exists purely so this repository's own tests and
// cmd/webserv have something concrete to load.
func Load(r io.Reader) (*Tree, error) {
	var doc jsonTree
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}

	tree := &Tree{}
	for _, js := range doc.Servers {
		s := &Server{
			Listen:      js.Listen,
			Host:        js.Host,
			ServerNames: js.ServerNames,
			Root:        js.Root,
			Index:       js.Index,
			BodyMaxSize: js.BodyMaxSize,
			ErrorPages:  js.ErrorPages,
		}
		for _, jl := range js.Locations {
			l := &Location{
				Pattern:      jl.Pattern,
				Root:         jl.Root,
				Alias:        jl.Alias,
				Index:        jl.Index,
				AllowMethods: jl.AllowMethods,
				ReturnCode:   jl.ReturnCode,
				ReturnURL:    jl.ReturnURL,
				ErrorPages:   jl.ErrorPages,
				Autoindex:    jl.Autoindex,
				UploadDir:    jl.UploadDir,
				CGIExt:       jl.CGIExt,
				CGIPath:      jl.CGIPath,
			}
			if jl.BodyMaxSize != nil {
				l.SetBodyMaxSize(*jl.BodyMaxSize)
			}
			s.Locations = append(s.Locations, l)
		}
		tree.Servers = append(tree.Servers, s)
	}
	tree.Finalize()
	return tree, nil
}
