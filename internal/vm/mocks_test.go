package vm

import (
	"sync"

	"github.com/digitalocean/go-libvirt"
)

// mockDomainReader is a mock implementation of the domainReader interface for testing.
type mockDomainReader struct {
	mu sync.Mutex

	// Configurable behavior
	domainLookupByNameFunc func(name string) (libvirt.Domain, error)
	domainGetStateFunc     func(dom libvirt.Domain, flags uint32) (int32, int32, error)
	domainGetInfoFunc      func(dom libvirt.Domain) (uint8, uint64, uint64, uint16, uint64, error)
	domainGetAutostartFunc func(dom libvirt.Domain) (int32, error)
	domainGetXMLDescFunc   func(dom libvirt.Domain, flags libvirt.DomainXMLFlags) (string, error)
	domainGetMetadataFunc  func(dom libvirt.Domain, typ int32, uri libvirt.OptString, flags libvirt.DomainModificationImpact) (string, error)

	// Call tracking
	domainLookupByNameCalls []string
	domainGetXMLDescCalls   int
}

// newMockDomainReader creates a mock for a running domain with no XML.
func newMockDomainReader() *mockDomainReader {
	return &mockDomainReader{
		domainLookupByNameFunc: func(name string) (libvirt.Domain, error) {
			return libvirt.Domain{Name: name}, nil
		},
		domainGetStateFunc: func(libvirt.Domain, uint32) (int32, int32, error) {
			return int32(libvirt.DomainRunning), 0, nil
		},
		domainGetInfoFunc: func(libvirt.Domain) (uint8, uint64, uint64, uint16, uint64, error) {
			return uint8(libvirt.DomainRunning), 4194304, 2097152, 2, 0, nil
		},
		domainGetAutostartFunc: func(libvirt.Domain) (int32, error) {
			return 0, nil
		},
		domainGetXMLDescFunc: func(libvirt.Domain, libvirt.DomainXMLFlags) (string, error) {
			return "", libvirt.Error{Code: uint32(libvirt.ErrInternalError), Message: "no xml"}
		},
		domainGetMetadataFunc: func(libvirt.Domain, int32, libvirt.OptString, libvirt.DomainModificationImpact) (string, error) {
			return "", libvirt.Error{Code: uint32(libvirt.ErrNoDomainMetadata), Message: "metadata not found"}
		},
	}
}

func (m *mockDomainReader) DomainLookupByName(name string) (libvirt.Domain, error) {
	m.mu.Lock()
	m.domainLookupByNameCalls = append(m.domainLookupByNameCalls, name)
	m.mu.Unlock()
	return m.domainLookupByNameFunc(name)
}

func (m *mockDomainReader) DomainGetState(dom libvirt.Domain, flags uint32) (int32, int32, error) {
	return m.domainGetStateFunc(dom, flags)
}

func (m *mockDomainReader) DomainGetInfo(dom libvirt.Domain) (uint8, uint64, uint64, uint16, uint64, error) {
	return m.domainGetInfoFunc(dom)
}

func (m *mockDomainReader) DomainGetAutostart(dom libvirt.Domain) (int32, error) {
	return m.domainGetAutostartFunc(dom)
}

func (m *mockDomainReader) DomainGetXMLDesc(dom libvirt.Domain, flags libvirt.DomainXMLFlags) (string, error) {
	m.mu.Lock()
	m.domainGetXMLDescCalls++
	m.mu.Unlock()
	return m.domainGetXMLDescFunc(dom, flags)
}

func (m *mockDomainReader) DomainGetMetadata(dom libvirt.Domain, typ int32, uri libvirt.OptString, flags libvirt.DomainModificationImpact) (string, error) {
	return m.domainGetMetadataFunc(dom, typ, uri, flags)
}
