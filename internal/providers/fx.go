package providers

import (
	"github.com/smallbiznis/jobboard/internal/providers/email"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
)
