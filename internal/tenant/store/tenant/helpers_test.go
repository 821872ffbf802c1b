package tenant

import id "salesgate/pkg/domain"

func idOf(n int64) id.TenantID { return id.TenantID(n) }
