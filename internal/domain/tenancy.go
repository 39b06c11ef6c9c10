package domain

// TenantScope porte l'identité multi-tenant d'un appel: la clinique de l'appelant
// et son éventuel privilège super admin. Un scope privilégié ignore le filtre
// clinic_id; un scope non privilégié DOIT porter une clinique, sinon l'appel
// échoue (Validate) au lieu de "ne rien voir".
type TenantScope struct {
	ClinicID   string
	Privileged bool
}

// PrivilegedScope scope sans filtre clinique (super admin).
func PrivilegedScope() TenantScope {
	return TenantScope{Privileged: true}
}

// ClinicScope scope restreint à une clinique.
func ClinicScope(clinicID string) TenantScope {
	return TenantScope{ClinicID: clinicID}
}

// Validate rejette l'état de confiance ambigu: ni clinique, ni privilège.
func (s TenantScope) Validate() error {
	if !s.Privileged && s.ClinicID == "" {
		return ErrTenantRequired
	}
	return nil
}

// Filtered indique si les requêtes doivent porter le prédicat clinic_id.
func (s TenantScope) Filtered() bool {
	return !s.Privileged
}

// Owns vérifie qu'une ressource de la clinique donnée est visible par ce scope.
func (s TenantScope) Owns(clinicID string) bool {
	return s.Privileged || s.ClinicID == clinicID
}
