package common

var restrictions = `{
	"oneOf": [
		{"type": "array", "items": {"$ref": "#/definitions/filter"}},
		{"$ref": "#/definitions/filter"}
	]
}`

var filter = `{
	"type": "object",
	"properties": {
		"issuer_did": {"type": "string"},
		"schema_id": {"type": "string"},
		"cred_def_id": {"type": "string"}
	}
}`

var schemas = map[Kind]string{
	KindOffer: `{
		"type": "object",
		"required": ["schema_id", "cred_def_id", "nonce"],
		"properties": {
			"schema_id": {"type": "string", "minLength": 1},
			"cred_def_id": {"type": "string", "minLength": 1},
			"nonce": {"type": "string", "minLength": 1},
			"key_correctness_proof": {"type": "object"}
		}
	}`,
	KindRequest: `{
		"type": "object",
		"required": ["prover_did", "cred_def_id", "blinded_ms", "blinded_ms_correctness_proof", "nonce"],
		"properties": {
			"prover_did": {"type": "string", "minLength": 1},
			"cred_def_id": {"type": "string", "minLength": 1},
			"blinded_ms": {"type": "string", "minLength": 1},
			"blinded_ms_correctness_proof": {"type": "string", "minLength": 1},
			"nonce": {"type": "string", "minLength": 1}
		}
	}`,
	KindCredential: `{
		"type": "object",
		"required": ["schema_id", "cred_def_id", "values", "signature"],
		"properties": {
			"schema_id": {"type": "string", "minLength": 1},
			"cred_def_id": {"type": "string", "minLength": 1},
			"values": {
				"type": "object",
				"minProperties": 1,
				"additionalProperties": {
					"type": "object",
					"required": ["raw", "encoded"],
					"properties": {
						"raw": {"type": "string"},
						"encoded": {"type": "string"}
					}
				}
			},
			"signature": {"type": "object"},
			"signature_correctness_proof": {"type": "object"}
		}
	}`,
	KindCredDef: `{
		"type": "object",
		"required": ["id", "schemaId", "type", "tag", "value"],
		"properties": {
			"id": {"type": "string", "minLength": 1},
			"schemaId": {"type": "string", "minLength": 1},
			"type": {"const": "CL"},
			"tag": {"type": "string"},
			"value": {
				"type": "object",
				"required": ["publicKey"],
				"properties": {"publicKey": {"type": "string", "minLength": 1}}
			}
		}
	}`,
	KindProofRequest: `{
		"type": "object",
		"required": ["nonce", "name", "version", "requested_attributes"],
		"definitions": {
			"filter": ` + filter + `,
			"restrictions": ` + restrictions + `
		},
		"properties": {
			"nonce": {"type": "string", "minLength": 1},
			"name": {"type": "string"},
			"version": {"type": "string"},
			"requested_attributes": {
				"type": "object",
				"additionalProperties": {
					"type": "object",
					"required": ["name"],
					"properties": {
						"name": {"type": "string", "minLength": 1},
						"restrictions": {"$ref": "#/definitions/restrictions"}
					}
				}
			},
			"requested_predicates": {
				"type": ["object", "null"],
				"additionalProperties": {
					"type": "object",
					"required": ["name", "p_type", "p_value"],
					"properties": {
						"name": {"type": "string", "minLength": 1},
						"p_type": {"enum": [">=", ">", "<=", "<"]},
						"p_value": {"type": "integer"},
						"restrictions": {"$ref": "#/definitions/restrictions"}
					}
				}
			}
		}
	}`,
	KindRequestedCredentials: `{
		"type": "object",
		"required": ["requested_attributes"],
		"properties": {
			"self_attested_attributes": {
				"type": ["object", "null"],
				"additionalProperties": {"type": "string"}
			},
			"requested_attributes": {
				"type": ["object", "null"],
				"additionalProperties": {
					"type": "object",
					"required": ["cred_id"],
					"properties": {
						"cred_id": {"type": "string", "minLength": 1},
						"revealed": {"type": "boolean"}
					}
				}
			},
			"requested_predicates": {
				"type": ["object", "null"],
				"additionalProperties": {
					"type": "object",
					"required": ["cred_id"],
					"properties": {"cred_id": {"type": "string", "minLength": 1}}
				}
			}
		}
	}`,
	KindProof: `{
		"type": "object",
		"required": ["proof", "requested_proof", "identifiers"],
		"properties": {
			"proof": {"type": "object"},
			"requested_proof": {
				"type": "object",
				"properties": {
					"revealed_attrs": {
						"type": ["object", "null"],
						"additionalProperties": {
							"type": "object",
							"required": ["sub_proof_index", "raw", "encoded"]
						}
					},
					"predicates": {
						"type": ["object", "null"],
						"additionalProperties": {
							"type": "object",
							"required": ["sub_proof_index"]
						}
					}
				}
			},
			"identifiers": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["schema_id", "cred_def_id"],
					"properties": {
						"schema_id": {"type": "string", "minLength": 1},
						"cred_def_id": {"type": "string", "minLength": 1},
						"issuer_did": {"type": "string"}
					}
				}
			}
		}
	}`,
	KindEnvelope: `{
		"type": "object",
		"required": ["mode", "kind", "thread_id", "recipient_verkey", "payload"],
		"properties": {
			"mode": {"enum": ["anoncrypt", "authcrypt", "none"]},
			"kind": {"type": "string", "minLength": 1},
			"thread_id": {"type": "string", "minLength": 1},
			"sender_did": {"type": "string"},
			"recipient_verkey": {"type": "string"},
			"payload": {"type": "object"},
			"expires_at_ms": {"type": "integer"},
			"meta": {}
		}
	}`,
	KindPresentationPackage: `{
		"type": "object",
		"required": ["type", "version", "presentation", "presentation_request"],
		"properties": {
			"type": {"const": "ssi.presentation.package"},
			"version": {"const": 1},
			"presentation": {"type": "object"},
			"presentation_request": {
				"type": "object",
				"required": ["nonce"]
			},
			"meta": {"type": ["object", "null"]}
		}
	}`,
	KindCredentialPackage: `{
		"type": "object",
		"required": ["type", "version", "credential"],
		"properties": {
			"type": {"const": "ssi.credential.package"},
			"version": {"const": 1},
			"credential": {
				"type": "object",
				"required": ["id_local", "schema_id", "cred_def_id", "values", "processed"]
			}
		}
	}`,
}
