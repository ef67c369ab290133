package entity

// Roles aceptados en el token del panel de administración.
const (
	RoleOwner = "owner" // dueño de la tienda
	RoleStaff = "staff" // colaborador con acceso al inventario
)

// ActorPublic identifica en el ledger los movimientos originados por el checkout público.
const ActorPublic = "public"
