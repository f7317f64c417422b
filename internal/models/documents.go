// internal/models/documents.go
package models

// Document names as they appear in the case management system.
const (
	DocTermReductionProof    = "Comprovante de redução de prazo"
	DocMarriageCertificate   = "Certidão de casamento"
	DocBirthCertificate      = "Certidão de nascimento"
	DocResidencyProof        = "Comprovante de tempo de residência"
	DocCPFStatus             = "Comprovante da situação cadastral do CPF"
	DocCRNM                  = "Carteira de Registro Nacional Migratório"
	DocTravelDocument        = "Documento de viagem internacional"
	DocPortugueseProof       = "Comprovante de comunicação em português"
	DocCriminalRecordBrazil  = "Certidão de antecedentes criminais (Brasil)"
	DocCriminalRecordOrigin  = "Atestado antecedentes criminais (país de origem)"
	DocLegalRepresentativeID = "Documento de identificação do representante legal"
)

// FlagResidencyBeforeThreshold marks a narrative stating residency began
// before the applicant turned ten.
const FlagResidencyBeforeThreshold = "residency_before_threshold"

