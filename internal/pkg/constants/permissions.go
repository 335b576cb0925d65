package constants

const (
	ViewResources     = "view_resources"
	BookResources     = "book_resources"
	ManageMaintenance = "manage_maintenance"
	ImportBookings    = "import_bookings"
	ViewPlanning      = "view_planning"
	ViewAudit         = "view_audit"
	ManagePlanning    = "manage_planning"
	AssignRole        = "assign_role"
)
