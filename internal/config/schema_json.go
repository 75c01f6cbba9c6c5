package config

// sweepSchema is the JSON Schema every sweep document must satisfy
// before decoding.
const sweepSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "Benchmark sweep configuration",
  "type": "object",
  "properties": {
    "name": {"type": "string"},
    "target": {
      "type": "object",
      "properties": {
        "baseUrl": {"type": "string"},
        "endpoint": {"type": "string", "minLength": 1},
        "typeSelector": {"type": "string"},
        "headers": {
          "type": "object",
          "additionalProperties": {"type": "string"}
        }
      },
      "required": ["endpoint"],
      "additionalProperties": false
    },
    "matrix": {
      "type": "object",
      "properties": {
        "levels": {
          "type": "array",
          "items": {"type": "integer", "minimum": 1},
          "minItems": 1
        },
        "start": {"type": "integer", "minimum": 1},
        "end": {"type": "integer", "minimum": 1},
        "step": {"type": "integer", "minimum": 1},
        "repetitions": {"type": "integer", "minimum": 1}
      },
      "additionalProperties": false
    },
    "load": {
      "type": "object",
      "properties": {
        "requestsPerUser": {"type": "integer", "minimum": 0},
        "profile": {"enum": ["bench", "smoke"]},
        "duration": {"$ref": "#/definitions/duration"},
        "pacing": {
          "type": "object",
          "properties": {
            "type": {"enum": ["none", "constant", "random"]},
            "duration": {"$ref": "#/definitions/duration"},
            "min": {"$ref": "#/definitions/duration"},
            "max": {"$ref": "#/definitions/duration"}
          },
          "additionalProperties": false
        },
        "timeout": {"$ref": "#/definitions/duration"},
        "keepAlive": {"type": "boolean"},
        "maxIdleConnsPerHost": {"type": "integer", "minimum": 0}
      },
      "additionalProperties": false
    },
    "service": {
      "type": "object",
      "properties": {
        "command": {
          "type": "array",
          "items": {"type": "string"}
        },
        "workers": {"type": "integer", "minimum": 1},
        "env": {
          "type": "array",
          "items": {"type": "string"}
        },
        "gracefulTimeout": {"$ref": "#/definitions/duration"},
        "logOutput": {"enum": ["discard", "capture"]}
      },
      "additionalProperties": false
    },
    "readiness": {
      "type": "object",
      "properties": {
        "path": {"type": "string"},
        "timeout": {"$ref": "#/definitions/duration"},
        "maxAttempts": {"type": "integer", "minimum": 1},
        "expect": {
          "type": "object",
          "additionalProperties": {"type": "string"}
        }
      },
      "additionalProperties": false
    },
    "warmup": {
      "type": "object",
      "properties": {
        "enabled": {"type": ["boolean", "null"]},
        "typeValue": {"type": "string"},
        "retries": {"type": "integer", "minimum": 0}
      },
      "additionalProperties": false
    },
    "delays": {
      "type": "object",
      "properties": {
        "settle": {"$ref": "#/definitions/duration"},
        "cooldown": {"$ref": "#/definitions/duration"}
      },
      "additionalProperties": false
    },
    "log": {
      "type": "object",
      "properties": {
        "dir": {"type": "string"},
        "outcomeFile": {"type": "string"}
      },
      "additionalProperties": false
    }
  },
  "required": ["target"],
  "additionalProperties": false,
  "definitions": {
    "duration": {"type": ["string", "integer"]}
  }
}`
