package provisioning

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/conorholds/openclaw-control-plane/internal/config"
)

//go:embed bootstrap.sh
var bootstrapScript string

// buildUserData assembles the cloud-init "user-data" script handed to a
// freshly created droplet. It deliberately omits `set -x`: xtrace would echo
// every exported variable — including the plaintext registration token —
// into the provider's serial console logs.
func buildUserData(botID uuid.UUID, registrationToken string, cfg *config.Config) string {
	var b strings.Builder

	fmt.Fprintf(&b, "#!/bin/bash\n")
	fmt.Fprintf(&b, "# openclaw bot bootstrap for bot %s\n", botID)
	fmt.Fprintf(&b, "set -e\n")
	fmt.Fprintf(&b, "# set -x is never enabled here: it would echo REGISTRATION_TOKEN to the\n")
	fmt.Fprintf(&b, "# provider's console log, handing out the bot's credential in plaintext.\n\n")

	fmt.Fprintf(&b, "export BOT_ID=%q\n", botID.String())
	fmt.Fprintf(&b, "export REGISTRATION_TOKEN=%q\n", registrationToken)
	fmt.Fprintf(&b, "export CONTROL_PLANE_URL=%q\n", cfg.ControlPlaneURL)

	fmt.Fprintf(&b, "export OPENCLAW_CUSTOMIZER_REPO_URL=%q\n", cfg.Customizer.RepoURL)
	fmt.Fprintf(&b, "export OPENCLAW_CUSTOMIZER_GIT_REF=%q\n", cfg.Customizer.GitRef)
	fmt.Fprintf(&b, "export OPENCLAW_CUSTOMIZER_WORKSPACE_DIR=%q\n", cfg.Customizer.WorkspaceDir)
	fmt.Fprintf(&b, "export OPENCLAW_CUSTOMIZER_AGENT_NAME=%q\n", cfg.Customizer.AgentName)
	fmt.Fprintf(&b, "export OPENCLAW_CUSTOMIZER_OWNER_NAME=%q\n", cfg.Customizer.OwnerName)
	fmt.Fprintf(&b, "export OPENCLAW_CUSTOMIZER_SKIP_LINT=%t\n", cfg.Customizer.SkipLint)
	fmt.Fprintf(&b, "export OPENCLAW_CUSTOMIZER_SKIP_TESTS=%t\n", cfg.Customizer.SkipTests)
	fmt.Fprintf(&b, "export OPENCLAW_CUSTOMIZER_SKIP_DOCS=%t\n", cfg.Customizer.SkipDocs)
	fmt.Fprintf(&b, "export OPENCLAW_CUSTOMIZER_SKIP_TELEMETRY=%t\n", cfg.Customizer.SkipTelemetry)

	fmt.Fprintf(&b, "export OPENCLAW_TOOLCHAIN_NODE_MAJOR=%d\n", cfg.Toolchain.NodeMajor)
	fmt.Fprintf(&b, "export OPENCLAW_TOOLCHAIN_INSTALL_PNPM=%t\n", cfg.Toolchain.InstallPnpm)
	fmt.Fprintf(&b, "export OPENCLAW_TOOLCHAIN_PNPM_VERSION=%q\n", cfg.Toolchain.PnpmVersion)
	fmt.Fprintf(&b, "export OPENCLAW_TOOLCHAIN_INSTALL_RUST=%t\n", cfg.Toolchain.InstallRust)
	fmt.Fprintf(&b, "export OPENCLAW_TOOLCHAIN_RUST_TOOLCHAIN=%q\n", cfg.Toolchain.RustToolchain)
	fmt.Fprintf(&b, "export OPENCLAW_EXTRA_APT_PACKAGES=%q\n", strings.Join(cfg.Toolchain.ExtraAptPackages, " "))
	fmt.Fprintf(&b, "export OPENCLAW_GLOBAL_NPM_PACKAGES=%q\n", strings.Join(cfg.Toolchain.GlobalNpmPackages, " "))
	fmt.Fprintf(&b, "export OPENCLAW_CARGO_CRATES=%q\n", strings.Join(cfg.Toolchain.CargoCrates, " "))

	b.WriteString("\n")
	b.WriteString(bootstrapScript)

	return b.String()
}
