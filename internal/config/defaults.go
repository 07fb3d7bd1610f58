package config

const (
	defaultSiteRoot            = "~/site"
	defaultDataDir             = "~/site/admin/config"
	defaultLogDir              = "~/.local/share/comicadmin/logs"
	defaultComicsFile          = "comic_var.json"
	defaultCharactersFile      = "charaktere.json"
	defaultURLCacheFile        = "comic_url_cache.json"
	defaultSettingsFile        = "admin_settings.json"
	defaultStubDir             = "comic"
	defaultStubExtension       = ".php"
	defaultRenderer            = "src/layout/comic_page_renderer.php"
	defaultStubTemplate        = "<?php require_once __DIR__ . '/%s';\n"
	defaultOriginalBaseURL     = "https://cdn.twokinds.keenspot.com/comics/"
	defaultProbeTimeoutSeconds = 10
	defaultProbeRatePerSecond  = 5
	defaultUserAgent           = "comicadmin/dev"
	defaultAPIBind             = "127.0.0.1:7590"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

var (
	defaultImageDirs = []string{
		"assets/comic_lowres",
		"assets/comic_hires",
		"assets/comic_thumbnails",
		"assets/comic_socialmedia",
	}
	defaultImageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp"}
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			SiteRoot: defaultSiteRoot,
			DataDir:  defaultDataDir,
			LogDir:   defaultLogDir,
		},
		Catalog: Catalog{
			ComicsFile:     defaultComicsFile,
			CharactersFile: defaultCharactersFile,
			URLCacheFile:   defaultURLCacheFile,
			SettingsFile:   defaultSettingsFile,
		},
		Assets: Assets{
			ImageDirs:       append([]string(nil), defaultImageDirs...),
			ImageExtensions: append([]string(nil), defaultImageExtensions...),
			StubDir:         defaultStubDir,
			StubExtension:   defaultStubExtension,
			Renderer:        defaultRenderer,
			StubTemplate:    defaultStubTemplate,
		},
		External: External{
			OriginalBaseURL:     defaultOriginalBaseURL,
			ProbeTimeoutSeconds: defaultProbeTimeoutSeconds,
			ProbeRatePerSecond:  defaultProbeRatePerSecond,
			UserAgent:           defaultUserAgent,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
