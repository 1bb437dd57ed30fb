package storefront

// Platform identifies the runtime platform the process was built for.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformMacOS   Platform = "macos"
	PlatformTVOS    Platform = "tvos"
	PlatformAndroid Platform = "android"
	PlatformWindows Platform = "windows"
	PlatformEditor  Platform = "editor"
)

// Store identifies the configured storefront. One storefront is fixed for the
// process lifetime.
type Store string

const (
	AppleAppStore Store = "AppleAppStore"
	MacAppStore   Store = "MacAppStore"
	GooglePlay    Store = "GooglePlay"
	SamsungApps   Store = "SamsungApps"
	CloudMoolah   Store = "CloudMoolah"
	XiaomiMiPay   Store = "XiaomiMiPay"
	TizenStore    Store = "TizenStore"
	WinRT         Store = "WinRT"
	FakeStore     Store = "fake"
)

// Capabilities is the set of optional store features available for the active
// platform/storefront pair. Resolved once at configuration time.
type Capabilities struct {
	SupportsRestore  bool
	RequiresLogin    bool
	SupportsValidate bool
	SupportsPayouts  bool
}

// Resolve maps a platform/storefront pair to its capability set. Pure and
// deterministic. Unknown combinations resolve to the minimal set rather than
// failing so the caller can still render a working storefront.
func Resolve(platform Platform, store Store) Capabilities {
	var caps Capabilities

	// Apple platforms and Windows restore through the platform extension;
	// Samsung and CloudMoolah expose an explicit restore call.
	switch platform {
	case PlatformIOS, PlatformMacOS, PlatformTVOS, PlatformWindows:
		caps.SupportsRestore = true
	}
	switch store {
	case SamsungApps, CloudMoolah:
		caps.SupportsRestore = true
	}

	// MiPay routes purchases through a channel account and supports a
	// server-side receipt query; CloudMoolah needs a wallet login before
	// restore.
	switch store {
	case XiaomiMiPay:
		caps.RequiresLogin = true
		caps.SupportsValidate = true
	case CloudMoolah:
		caps.RequiresLogin = true
	}

	// Payouts are defined per product; every recognized storefront can
	// deliver them. The fake store included, so local runs exercise the
	// payout path.
	switch store {
	case AppleAppStore, MacAppStore, GooglePlay, SamsungApps, CloudMoolah, XiaomiMiPay, TizenStore, WinRT, FakeStore:
		caps.SupportsPayouts = true
	}

	return caps
}
