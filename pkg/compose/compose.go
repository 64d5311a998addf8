// Package compose reads the docker compose descriptor shipped with every
// challenge and derives the host port and health endpoint of its first
// service.
package compose

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/common/errors"
)

const domain = "compose"

// FileNames are the descriptor names looked up, in order.
var FileNames = []string{
	"docker-compose.yml",
	"docker-compose.yaml",
	"compose.yml",
	"compose.yaml",
}

// Descriptor is the part of a compose file the verifier relies on.
type Descriptor struct {
	Path          string
	Service       string
	HostPort      string
	ContainerPort string
	HealthTest    []string
}

// Find returns the path of the compose file in dir.
func Find(dir string) (string, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", errors.New(errors.CodeConfigMissing, domain, fmt.Sprintf("no docker-compose.yml found in %s", dir), nil)
}

// Load finds and parses the compose file in dir.
func Load(dir string) (*Descriptor, error) {
	path, err := Find(dir)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.CodeConfigMissing, domain, fmt.Sprintf("reading %s", path), err)
	}
	desc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	desc.Path = path
	return desc, nil
}

// Parse decodes a compose document. Only the first service declared is
// considered, and only its first port mapping.
func Parse(data []byte) (*Descriptor, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.New(errors.CodeConfigMissing, domain, "invalid compose file", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.New(errors.CodeConfigMissing, domain, "empty compose file", nil)
	}

	services := lookup(resolve(doc.Content[0]), "services")
	if services == nil || services.Kind != yaml.MappingNode || len(services.Content) < 2 {
		return nil, errors.New(errors.CodeConfigMissing, domain, "no services defined in compose file", nil)
	}

	desc := &Descriptor{Service: services.Content[0].Value}
	service := resolve(services.Content[1])

	ports := lookup(service, "ports")
	if ports == nil || ports.Kind != yaml.SequenceNode || len(ports.Content) == 0 {
		return nil, errors.New(errors.CodeConfigMissing, domain, fmt.Sprintf("no ports defined for service %s", desc.Service), nil)
	}

	host, container, err := parsePort(resolve(ports.Content[0]))
	if err != nil {
		return nil, err
	}
	desc.HostPort = host
	desc.ContainerPort = container

	if hc := lookup(service, "healthcheck"); hc != nil {
		desc.HealthTest = healthTest(lookup(hc, "test"))
	}

	return desc, nil
}

// HealthURL is the address polled from the host. The first http URL of the
// healthcheck test is used with its container port swapped for the host
// port; without one the service is expected at /health.
func (d *Descriptor) HealthURL() string {
	for _, part := range d.HealthTest {
		for _, token := range strings.Fields(part) {
			if strings.HasPrefix(token, "http") {
				return d.publish(strings.Trim(token, `"'`))
			}
		}
	}
	return fmt.Sprintf("http://localhost:%s/health", d.HostPort)
}

func (d *Descriptor) publish(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.Replace(raw, ":"+d.ContainerPort, ":"+d.HostPort, 1)
	}
	if port := u.Port(); port == "" || port == d.ContainerPort {
		u.Host = net.JoinHostPort(u.Hostname(), d.HostPort)
	}
	return u.String()
}

func parsePort(node *yaml.Node) (string, string, error) {
	var host, container string

	switch node.Kind {
	case yaml.ScalarNode:
		mapping := strings.Trim(strings.TrimSpace(node.Value), `"'`)
		parts := strings.Split(mapping, ":")
		switch len(parts) {
		case 2:
			host, container = parts[0], parts[1]
		case 3:
			// ip:host:container
			host, container = parts[1], parts[2]
		default:
			return "", "", malformed(node.Value)
		}
	case yaml.MappingNode:
		if n := lookup(node, "published"); n != nil {
			host = n.Value
		}
		if n := lookup(node, "target"); n != nil {
			container = n.Value
		}
	default:
		return "", "", malformed(node.Value)
	}

	container, _, _ = strings.Cut(container, "/")
	if !isPort(host) || !isPort(container) {
		return "", "", malformed(node.Value)
	}
	return host, container, nil
}

func malformed(value string) error {
	return errors.New(errors.CodeConfigMissing, domain, fmt.Sprintf("malformed port mapping %q", value), nil)
}

func isPort(s string) bool {
	n, err := strconv.Atoi(s)
	return err == nil && n > 0 && n < 65536
}

func healthTest(node *yaml.Node) []string {
	node = resolve(node)
	if node == nil {
		return nil
	}
	switch node.Kind {
	case yaml.SequenceNode:
		parts := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			parts = append(parts, resolve(item).Value)
		}
		return parts
	case yaml.ScalarNode:
		return strings.Fields(node.Value)
	}
	return nil
}

// lookup returns the value of key in a mapping node.
func lookup(node *yaml.Node, key string) *yaml.Node {
	node = resolve(node)
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return resolve(node.Content[i+1])
		}
	}
	return nil
}

func resolve(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	return node
}
