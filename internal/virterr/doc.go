// Package virterr translates errors coming back from the libvirt binding into
// the typed errors the rest of hostvirt reasons about.
//
// The libvirt error enumeration is large and mostly opaque. Only one code is
// recognized specially by Classify: "domain not found" becomes a
// *DomainNotExistError. Every other native failure becomes a *HypervisorError
// that keeps the native code and message for diagnostics. Unreachable hosts are
// reported as *HostDownError by the connection layer before any native call is
// made.
//
// Callers test for the categories with errors.As or the helper predicates:
//
//	dom, err := mgr.Lookup(ctx, host, id)
//	switch {
//	case virterr.IsHostDown(err):
//	    // host failed the reachability probe or refused the tunnel
//	case virterr.IsDomainNotExist(err):
//	    // nothing to do
//	case err != nil:
//	    log.Printf("libvirt error %d: %v", virterr.CodeOf(err), err)
//	}
//
// Some components treat specific native codes as idempotent success (a detach
// of a device that is already gone, a delete of a volume that no longer
// exists). They inspect the raw code with NativeCode before classifying.
package virterr
